package auth

import "context"

// AuthVerifier valida un bearer token contra el proveedor externo y
// devuelve los claims del usuario. Con verifier nil el middleware opera
// en modo dev y toma la identidad de los headers X-Debug-*.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
