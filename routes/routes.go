// Package routes is the browser route table: it parses paths into routes,
// builds paths from route names and resolves human-readable numbers to ids.
package routes

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskdesk/taskdesk/client"
	"github.com/taskdesk/taskdesk/internal/errors"
)

// Name identifies a route.
type Name string

const (
	Login      Name = "login"
	Register   Name = "register"
	Dashboard  Name = "dashboard"
	Invitation Name = "invitation"
	Workspace  Name = "workspace"
	Space      Name = "space"
)

// Path variables.
const (
	VarInvitationID    = "invitationId"
	VarWorkspaceNumber = "workspaceNumber"
	VarSpaceNumber     = "spaceNumber"
)

// Route is a parsed path.
type Route struct {
	Name            Name
	InvitationID    string
	WorkspaceNumber client.Number
	SpaceNumber     client.Number
}

var table = newRouter()

func newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Path("/login").Name(string(Login))
	r.Path("/register").Name(string(Register))
	r.Path("/dashboard").Name(string(Dashboard))
	r.Path("/invitation/{" + VarInvitationID + "}").Name(string(Invitation))
	r.Path("/{" + VarWorkspaceNumber + ":[0-9]+}").Name(string(Workspace))
	r.Path("/{" + VarWorkspaceNumber + ":[0-9]+}/{" + VarSpaceNumber + ":[0-9]+}").Name(string(Space))
	return r
}

// Parse matches path against the route table. Unknown paths yield a
// NotFound error.
func Parse(path string) (Route, error) {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return Route{}, errors.NewValidationError("parse route", fmt.Sprintf("invalid path %q", path))
	}
	var m mux.RouteMatch
	if !table.Match(req, &m) || m.MatchErr != nil || m.Route == nil {
		return Route{}, errors.NewNotFoundError("parse route", fmt.Sprintf("no route for %q", path))
	}
	return Route{
		Name:            Name(m.Route.GetName()),
		InvitationID:    m.Vars[VarInvitationID],
		WorkspaceNumber: client.Number(m.Vars[VarWorkspaceNumber]),
		SpaceNumber:     client.Number(m.Vars[VarSpaceNumber]),
	}, nil
}

// Path builds the path for name from key/value pairs of path variables,
// e.g. Path(Space, VarWorkspaceNumber, "4", VarSpaceNumber, "2").
func Path(name Name, pairs ...string) (string, error) {
	r := table.Get(string(name))
	if r == nil {
		return "", errors.NewNotFoundError("build route", fmt.Sprintf("unknown route %q", name))
	}
	u, err := r.URLPath(pairs...)
	if err != nil {
		return "", errors.NewValidationError("build route", err.Error())
	}
	return u.Path, nil
}

// String renders the route back into a path.
func (r Route) String() string {
	var p string
	switch r.Name {
	case Invitation:
		p, _ = Path(r.Name, VarInvitationID, r.InvitationID)
	case Workspace:
		p, _ = Path(r.Name, VarWorkspaceNumber, r.WorkspaceNumber.String())
	case Space:
		p, _ = Path(r.Name, VarWorkspaceNumber, r.WorkspaceNumber.String(), VarSpaceNumber, r.SpaceNumber.String())
	default:
		p, _ = Path(r.Name)
	}
	return p
}

// Lookup resolves numbers to ids. *directory.Directory satisfies it.
type Lookup interface {
	WorkspaceIDByNumber(number client.Number) (string, bool)
	SpaceIDByNumber(workspaceNumber, spaceNumber client.Number) (string, bool)
}

// Target is a route with its numbers resolved to ids.
type Target struct {
	Route
	WorkspaceID string
	SpaceID     string
}

// Resolve maps the route's numbers to ids through lookup. An unknown
// workspace or space number yields a NotFound error.
func Resolve(r Route, lookup Lookup) (Target, error) {
	t := Target{Route: r}
	if r.Name != Workspace && r.Name != Space {
		return t, nil
	}
	id, ok := lookup.WorkspaceIDByNumber(r.WorkspaceNumber)
	if !ok {
		return t, errors.NewNotFoundError("resolve route", fmt.Sprintf("workspace %s not found", r.WorkspaceNumber))
	}
	t.WorkspaceID = id
	if r.Name == Space {
		sid, ok := lookup.SpaceIDByNumber(r.WorkspaceNumber, r.SpaceNumber)
		if !ok {
			return t, errors.NewNotFoundError("resolve route", fmt.Sprintf("space %s/%s not found", r.WorkspaceNumber, r.SpaceNumber))
		}
		t.SpaceID = sid
	}
	return t, nil
}
