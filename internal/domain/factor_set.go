package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FactorSet holds the 30 factor slots (8..37) of a qualification. Every slot is nullable.
type FactorSet struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	QualificationID uuid.UUID `gorm:"column:qualification_id;type:uuid;not null;uniqueIndex" json:"qualification_id"`

	Factor8  decimal.NullDecimal `gorm:"column:factor_8;type:numeric(9,8)" json:"factor_8"`
	Factor9  decimal.NullDecimal `gorm:"column:factor_9;type:numeric(9,8)" json:"factor_9"`
	Factor10 decimal.NullDecimal `gorm:"column:factor_10;type:numeric(9,8)" json:"factor_10"`
	Factor11 decimal.NullDecimal `gorm:"column:factor_11;type:numeric(9,8)" json:"factor_11"`
	Factor12 decimal.NullDecimal `gorm:"column:factor_12;type:numeric(9,8)" json:"factor_12"`
	Factor13 decimal.NullDecimal `gorm:"column:factor_13;type:numeric(9,8)" json:"factor_13"`
	Factor14 decimal.NullDecimal `gorm:"column:factor_14;type:numeric(9,8)" json:"factor_14"`
	Factor15 decimal.NullDecimal `gorm:"column:factor_15;type:numeric(9,8)" json:"factor_15"`
	Factor16 decimal.NullDecimal `gorm:"column:factor_16;type:numeric(9,8)" json:"factor_16"`
	Factor17 decimal.NullDecimal `gorm:"column:factor_17;type:numeric(9,8)" json:"factor_17"`
	Factor18 decimal.NullDecimal `gorm:"column:factor_18;type:numeric(9,8)" json:"factor_18"`
	Factor19 decimal.NullDecimal `gorm:"column:factor_19;type:numeric(9,8)" json:"factor_19"`
	Factor20 decimal.NullDecimal `gorm:"column:factor_20;type:numeric(9,8)" json:"factor_20"`
	Factor21 decimal.NullDecimal `gorm:"column:factor_21;type:numeric(9,8)" json:"factor_21"`
	Factor22 decimal.NullDecimal `gorm:"column:factor_22;type:numeric(9,8)" json:"factor_22"`
	Factor23 decimal.NullDecimal `gorm:"column:factor_23;type:numeric(9,8)" json:"factor_23"`
	Factor24 decimal.NullDecimal `gorm:"column:factor_24;type:numeric(9,8)" json:"factor_24"`
	Factor25 decimal.NullDecimal `gorm:"column:factor_25;type:numeric(9,8)" json:"factor_25"`
	Factor26 decimal.NullDecimal `gorm:"column:factor_26;type:numeric(9,8)" json:"factor_26"`
	Factor27 decimal.NullDecimal `gorm:"column:factor_27;type:numeric(9,8)" json:"factor_27"`
	Factor28 decimal.NullDecimal `gorm:"column:factor_28;type:numeric(9,8)" json:"factor_28"`
	Factor29 decimal.NullDecimal `gorm:"column:factor_29;type:numeric(9,8)" json:"factor_29"`
	Factor30 decimal.NullDecimal `gorm:"column:factor_30;type:numeric(9,8)" json:"factor_30"`
	Factor31 decimal.NullDecimal `gorm:"column:factor_31;type:numeric(9,8)" json:"factor_31"`
	Factor32 decimal.NullDecimal `gorm:"column:factor_32;type:numeric(9,8)" json:"factor_32"`
	Factor33 decimal.NullDecimal `gorm:"column:factor_33;type:numeric(9,8)" json:"factor_33"`
	Factor34 decimal.NullDecimal `gorm:"column:factor_34;type:numeric(9,8)" json:"factor_34"`
	Factor35 decimal.NullDecimal `gorm:"column:factor_35;type:numeric(9,8)" json:"factor_35"`
	Factor36 decimal.NullDecimal `gorm:"column:factor_36;type:numeric(9,8)" json:"factor_36"`
	Factor37 decimal.NullDecimal `gorm:"column:factor_37;type:numeric(9,8)" json:"factor_37"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FactorSet) TableName() string {
	return "factor_sets"
}

func (f *FactorSet) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// slot returns the field backing factor index i, nil outside 8..37.
func (f *FactorSet) slot(i int) *decimal.NullDecimal {
	switch i {
	case 8:
		return &f.Factor8
	case 9:
		return &f.Factor9
	case 10:
		return &f.Factor10
	case 11:
		return &f.Factor11
	case 12:
		return &f.Factor12
	case 13:
		return &f.Factor13
	case 14:
		return &f.Factor14
	case 15:
		return &f.Factor15
	case 16:
		return &f.Factor16
	case 17:
		return &f.Factor17
	case 18:
		return &f.Factor18
	case 19:
		return &f.Factor19
	case 20:
		return &f.Factor20
	case 21:
		return &f.Factor21
	case 22:
		return &f.Factor22
	case 23:
		return &f.Factor23
	case 24:
		return &f.Factor24
	case 25:
		return &f.Factor25
	case 26:
		return &f.Factor26
	case 27:
		return &f.Factor27
	case 28:
		return &f.Factor28
	case 29:
		return &f.Factor29
	case 30:
		return &f.Factor30
	case 31:
		return &f.Factor31
	case 32:
		return &f.Factor32
	case 33:
		return &f.Factor33
	case 34:
		return &f.Factor34
	case 35:
		return &f.Factor35
	case 36:
		return &f.Factor36
	case 37:
		return &f.Factor37
	}
	return nil
}

// Get returns factor i, nil when unset or out of range.
func (f *FactorSet) Get(i int) *decimal.Decimal {
	s := f.slot(i)
	if s == nil || !s.Valid {
		return nil
	}
	d := s.Decimal
	return &d
}

// Set stores v in slot i; nil clears it. Out-of-range indices are ignored.
func (f *FactorSet) Set(i int, v *decimal.Decimal) {
	s := f.slot(i)
	if s == nil {
		return
	}
	if v == nil {
		*s = decimal.NullDecimal{}
		return
	}
	*s = decimal.NewNullDecimal(*v)
}

// Values returns every slot keyed by index; unset slots map to nil.
func (f *FactorSet) Values() map[int]*decimal.Decimal {
	out := make(map[int]*decimal.Decimal, 30)
	for i := 8; i <= 37; i++ {
		out[i] = f.Get(i)
	}
	return out
}

// Replace overwrites all 30 slots: present indices take the given value, the rest are cleared.
func (f *FactorSet) Replace(values map[int]*decimal.Decimal) {
	for i := 8; i <= 37; i++ {
		f.Set(i, values[i])
	}
}
