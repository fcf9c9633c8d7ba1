// Package api carries the dashboard's OpenAPI document.
package api

import _ "embed"

//go:embed openapi.yml
var OpenAPI []byte
