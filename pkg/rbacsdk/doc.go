// Package rbacsdk provides a Go client for the Warden RBAC service.
//
// The SDKClient performs unauthenticated calls (health checks, JWKS, login)
// and creates Sessions. A Session carries the access token returned by
// login and exposes the account and administration endpoints.
//
// Basic usage:
//
//	client := rbacsdk.NewSDKClient("https://warden.example.com")
//
//	session, err := client.Login(ctx, "admin", "secret")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	users, err := session.ListUsers(ctx, rbacsdk.ListUsersParams{Search: "ali"})
//
// Warden does not issue refresh tokens. Once the access token expires every
// Session method returns ErrSessionExpired and the caller signs in again.
//
// Errors returned by the server are *APIError values:
//
//	var apiErr *rbacsdk.APIError
//	if errors.As(err, &apiErr) && apiErr.IsConflict() {
//		// handle duplicate
//	}
package rbacsdk
