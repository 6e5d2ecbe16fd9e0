package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"

	// PermCompaniesAll lifts the company scope on list endpoints.
	PermCompaniesAll = "companies.all"
)

// Master data.
const (
	PermMasterDataView = "masterdata.view"
	PermMasterDataEdit = "masterdata.edit"
)

// CRM.
const (
	PermCustomersView   = "customers.view"
	PermCustomersEdit   = "customers.edit"
	PermCustomersAssign = "customers.assign"
	PermCustomersImport = "customers.import"
	PermCustomersExport = "customers.export"

	PermTagsEdit = "tags.edit"
)

// Orders.
const (
	PermOrdersView     = "orders.view"
	PermOrdersCreate   = "orders.create"
	PermOrdersEdit     = "orders.edit"
	PermOrdersTracking = "orders.tracking"
	PermOrdersImport   = "orders.import"
	PermOrdersExport   = "orders.export"
)

// Promotions.
const (
	PermPromotionsView = "promotions.view"
	PermPromotionsEdit = "promotions.edit"
)

// Inventory and procurement.
const (
	PermInventoryView   = "inventory.view"
	PermInventoryAdjust = "inventory.adjust"
	PermPurchasesView   = "purchases.view"
	PermPurchasesEdit   = "purchases.edit"
	PermPurchasesRecv   = "purchases.receive"
)

// Reports and attendance.
const (
	PermReportsView    = "reports.view"
	PermAttendanceView = "attendance.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermCompaniesAll,
	}
}

// CRMScopes lists customer, order and promotion permissions.
func CRMScopes() []string {
	return []string{
		PermCustomersView,
		PermCustomersEdit,
		PermCustomersAssign,
		PermCustomersImport,
		PermCustomersExport,
		PermTagsEdit,
		PermOrdersView,
		PermOrdersCreate,
		PermOrdersEdit,
		PermOrdersTracking,
		PermOrdersImport,
		PermOrdersExport,
		PermPromotionsView,
		PermPromotionsEdit,
	}
}

// BackofficeScopes lists master data, stock and reporting permissions.
func BackofficeScopes() []string {
	return []string{
		PermMasterDataView,
		PermMasterDataEdit,
		PermInventoryView,
		PermInventoryAdjust,
		PermPurchasesView,
		PermPurchasesEdit,
		PermPurchasesRecv,
		PermReportsView,
		PermAttendanceView,
	}
}

// AllScopes is the full permission catalogue.
func AllScopes() []string {
	all := CoreScopes()
	all = append(all, CRMScopes()...)
	return append(all, BackofficeScopes()...)
}
