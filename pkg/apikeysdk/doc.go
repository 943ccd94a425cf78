// Package apikeysdk is the Go client for the API key service.
//
// Management calls (issue, list, update, revoke, rotate) authenticate with a
// short lived bearer token whose subject is the owner of the keys:
//
//	client := apikeysdk.NewClient("http://localhost:8080", token)
//	gen, err := client.GenerateKey(ctx, apikeysdk.GenerateKeyRequest{
//		Name:   "billing export",
//		Scopes: []string{"billing:read"},
//	})
//	// gen.Secret is shown once and is never retrievable again.
//
// Services that receive API keys can check them with ValidateKey, or call
// WhoAmI with the key itself.
package apikeysdk
