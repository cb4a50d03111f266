// Package mocks provides generated mock implementations of the portal's ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// storage interfaces. To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockProfileStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "u1").Return(nil, profile.ErrNotFound)
//
// Hand-written doubles for identity providers and session storage live in
// the auth subpackage.
package mocks

// Generate mock for ProfileStore interface from internal/ports package.
// This creates MockProfileStore with methods Get, Set, Query.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_store_mock.go github.com/Chavhanmoin/CrackBatu/internal/ports ProfileStore
