// Package testutil contains helper builders and mocks used across tests to
// reduce boilerplate when constructing plans and scripting invoker behavior.
// They are not intended for production usage.
package testutil
