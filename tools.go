//go:build tools

package tools

// mockery v3 is used as an installed binary, so no blank import is needed.
// Run: mockery --name Transport --dir pkg/transport --output pkg/transport/mocks
// to regenerate the transport mock.
