package swagger

import _ "embed"

// OpenAPI is the OpenAPI 3 document describing every route of the API.
//
//go:embed openapi.yaml
var OpenAPI []byte
