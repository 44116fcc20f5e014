package constants

const (
	ViewData             = "view_data"
	EditQualifications   = "edit_qualifications"
	DeleteQualifications = "delete_qualifications"
	BulkImport           = "bulk_import"
	ManageUsers          = "manage_users"
	ViewAudit            = "view_audit"
)
