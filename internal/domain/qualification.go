package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Markets a qualification can belong to.
const (
	MarketStocks      = "ACN"
	MarketCFI         = "CFI"
	MarketMutualFunds = "Fondos_Mutuos"
)

// Origins record how a qualification entered the system.
const (
	OriginSystem     = "Sistema"
	OriginBroker     = "Corredor"
	OriginBulkImport = "Carga_Masiva"
)

// Company types.
const (
	CompanyOpen   = "A"
	CompanyClosed = "C"
)

// MinFiscalYear and MinEventSequence bound the identifying fields of a qualification.
const (
	MinFiscalYear    = 2000
	MinEventSequence = 10001
)

var validMarkets = []string{MarketStocks, MarketCFI, MarketMutualFunds}

// CanonicalMarket resolves a market case-insensitively ("fondos_mutuos" -> "Fondos_Mutuos").
func CanonicalMarket(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, m := range validMarkets {
		if strings.EqualFold(m, s) {
			return m, true
		}
	}
	return "", false
}

// IsValidOrigin reports whether s is one of the known origins.
func IsValidOrigin(s string) bool {
	return s == OriginSystem || s == OriginBroker || s == OriginBulkImport
}

// IsValidCompanyType reports whether s is A or C.
func IsValidCompanyType(s string) bool {
	return s == CompanyOpen || s == CompanyClosed
}

// QualificationKey identifies a qualification among the active ones.
type QualificationKey struct {
	FiscalYear    int    `json:"fiscal_year"`
	Market        string `json:"market"`
	Instrument    string `json:"instrument"`
	EventSequence int    `json:"event_sequence"`
}

// Qualification is one dividend tax-attribution event for an instrument in a fiscal year.
// (fiscal_year, market, instrument, event_sequence) is unique among active rows.
type Qualification struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FiscalYear      int                 `gorm:"column:fiscal_year;not null;uniqueIndex:uq_qualifications_active_key,where:active = true" json:"fiscal_year"`
	Market          string              `gorm:"column:market;type:varchar(15);not null;uniqueIndex:uq_qualifications_active_key" json:"market"`
	Instrument      string              `gorm:"column:instrument;type:varchar(50);not null;uniqueIndex:uq_qualifications_active_key" json:"instrument"`
	PaymentDate     time.Time           `gorm:"column:payment_date;type:date;not null" json:"payment_date"`
	EventSequence   int                 `gorm:"column:event_sequence;not null;uniqueIndex:uq_qualifications_active_key" json:"event_sequence"`
	DividendNumber  int                 `gorm:"column:dividend_number;not null" json:"dividend_number"`
	Description     string              `gorm:"column:description;type:text" json:"description"`
	CompanyType     string              `gorm:"column:company_type;type:char(1)" json:"company_type"`
	HistoricalValue decimal.NullDecimal `gorm:"column:historical_value;type:numeric(15,2)" json:"historical_value"`
	UpdateFactor    decimal.Decimal     `gorm:"column:update_factor;type:numeric(9,8);not null" json:"update_factor"`
	ISFUT           bool                `gorm:"column:isfut;not null" json:"isfut"`
	Origin          string              `gorm:"column:origin;type:varchar(15);not null;index" json:"origin"`
	CreatedByID     uuid.UUID           `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	Active          bool                `gorm:"column:active;not null;index" json:"active"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	Factors *FactorSet `gorm:"foreignKey:QualificationID;constraint:OnDelete:CASCADE" json:"factors,omitempty"`
}

func (Qualification) TableName() string {
	return "qualifications"
}

func (q *Qualification) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Key returns the identifying tuple of q.
func (q *Qualification) Key() QualificationKey {
	return QualificationKey{
		FiscalYear:    q.FiscalYear,
		Market:        q.Market,
		Instrument:    q.Instrument,
		EventSequence: q.EventSequence,
	}
}
