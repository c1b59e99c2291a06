// Package session turns a resolved identity into a navigation decision.
// The resolver is pure and re-evaluated on every authenticated request; it is
// never cached across identity-state changes (login, logout, token refresh).
package session

import "github.com/internlink/backend/core/profile"

// Surface is a role-specific area of the application a client may request.
type Surface string

const (
	SurfaceStudent     Surface = "aluno"
	SurfaceTeacher     Surface = "professor"
	SurfaceTutor       Surface = "tutor"
	SurfaceSchoolAdmin Surface = "admin_escolar"
	SurfaceAdmin       Surface = "admin"
)

// SurfaceForRole maps a profile role onto the surface it is served by.
func SurfaceForRole(role string) Surface {
	return Surface(role)
}

// Destination is where the client should land after resolution.
type Destination string

const (
	DestLogin         Destination = "login"          // no usable identity
	DestAccountStatus Destination = "account-status" // role does not match the requested surface
	DestWaiting       Destination = "waiting"        // estado is not ativo yet
	DestSurface       Destination = "surface"        // render the requested dashboard
)

// Route is the resolver's decision.
type Route struct {
	Destination Destination `json:"destination"`
	Surface     Surface     `json:"surface,omitempty"`
	// Message carries the responsible-party hint shown on the waiting page.
	Message string `json:"message,omitempty"`
}

// waiting-page messaging per role; the responsible party differs.
const (
	msgWaitingStudent = "A sua conta aguarda aprovação por um professor ou administrador da sua escola."
	msgWaitingTeacher = "A sua conta aguarda aprovação pelo administrador da sua escola."
	msgWaitingGeneric = "A sua conta ainda não está ativa. Contacte o responsável da sua instituição."
	msgRejected       = "O seu registo foi rejeitado. Contacte a sua instituição para mais informações."
)

// Resolve applies the lifecycle rules top to bottom, first match wins:
//
//  1. no authenticated identity, or no profile for it: back to login
//  2. school admins are provisioned pre-approved and always get their surface
//  3. a role asking for someone else's surface gets the account-status page
//  4. any estado other than ativo waits, with role-specific messaging
//  5. otherwise the requested surface is served
func Resolve(authenticated bool, prof *profile.Profile, requested Surface) Route {
	if !authenticated || prof == nil {
		// a missing profile is an incomplete registration, not an error page
		return Route{Destination: DestLogin}
	}

	if prof.IsSchoolAdmin() {
		return Route{Destination: DestSurface, Surface: SurfaceSchoolAdmin}
	}

	if requested != "" && requested != SurfaceForRole(prof.Role) {
		return Route{Destination: DestAccountStatus}
	}

	if !prof.IsActive() {
		return Route{Destination: DestWaiting, Message: waitingMessage(prof)}
	}

	return Route{Destination: DestSurface, Surface: SurfaceForRole(prof.Role)}
}

func waitingMessage(prof *profile.Profile) string {
	if prof.Estado == profile.EstadoRejeitado {
		return msgRejected
	}
	switch prof.Role {
	case profile.RoleStudent:
		return msgWaitingStudent
	case profile.RoleTeacher:
		return msgWaitingTeacher
	}
	return msgWaitingGeneric
}
