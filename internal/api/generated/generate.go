// Пакет generated — типы и серверный интерфейс API по openapi.yaml.
// types.go и server.go генерируются oapi-codegen (models и chi-server),
// spec.go со встроенным документом поддерживается вручную.
package generated

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen@v2.5.1 -config types.cfg.yaml openapi.yaml
//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen@v2.5.1 -config server.cfg.yaml openapi.yaml
