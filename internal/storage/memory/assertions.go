package memory

import "github.com/tinoosan/invoices/internal/service/invoicing"

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ invoicing.Repo   = (*Store)(nil)
	_ invoicing.Writer = (*Store)(nil)
)
