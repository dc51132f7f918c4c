// Package api は OpenAPI 定義をバイナリに埋め込む。
package api

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
