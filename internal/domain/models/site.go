// internal/domain/models/site.go
package models

// DefaultSiteName is shown in the menu header and page titles.
const DefaultSiteName = "Strata Portal"

// DefaultFooterHTML is rendered below every page.
const DefaultFooterHTML = `<p>Academic Administration Portal</p>`
