package postgres

import "github.com/tinoosan/invoices/internal/service/invoicing"

var (
	_ invoicing.Repo   = (*Store)(nil)
	_ invoicing.Writer = (*Store)(nil)
)
