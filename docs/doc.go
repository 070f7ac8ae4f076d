// Package docs provides generated OpenAPI documentation.
//
// Digest API
//
//	@title			Digest API
//	@version		1.0
//	@description	Progressive chapter summarization API: convert books, run summarization jobs, inspect LLM calls.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/digest
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/digest/serve.go -o ./swagger --parseDependency --parseInternal
