package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	platformauth "github.com/Chetanya2001/CRM-backend/platform/auth"
)

// routeGroup pairs an API prefix with the middleware its handlers expect.
// The prefixes are stable: the deployed frontend addresses them directly,
// so renaming one is a breaking change.
type routeGroup struct {
	prefix string
	// auth rejects requests without a verified identity.
	auth bool
	// tenant resolves the company database and attaches it to the request.
	tenant bool
	// mount registers the group's handlers. Groups whose handlers live in
	// other services leave this nil and answer 501 until one is plugged in.
	mount func(chi.Router)
}

type apiDeps struct {
	resolveTenant func(http.Handler) http.Handler
	notifications *notificationHandler
}

// mountAPIRoutes mounts every route group under the api router. The table
// mirrors the middleware pairing each prefix has always had: master-level
// groups skip tenant resolution, public tenant groups skip auth.
func mountAPIRoutes(r chi.Router, deps apiDeps) {
	groups := []routeGroup{
		{prefix: "/masteruser"},
		{prefix: "/company"},
		{prefix: "/crew", auth: true, tenant: true},
		{prefix: "/manager", tenant: true},
		{prefix: "/hr", tenant: true},
		{prefix: "/leads", auth: true, tenant: true},
		{prefix: "/calldetails", auth: true, tenant: true},
		{prefix: "/meetings", auth: true, tenant: true},
		{prefix: "/opportunities", auth: true, tenant: true},
		{prefix: "/client-leads", auth: true, tenant: true},
		{prefix: "/invoice", auth: true, tenant: true},
		{prefix: "/executive-activities", auth: true, tenant: true},
		{prefix: "/freshleads", auth: true, tenant: true},
		{prefix: "/converted", auth: true, tenant: true},
		{prefix: "/close-leads", auth: true, tenant: true},
		{prefix: "/notification", auth: true, tenant: true, mount: deps.notifications.mount},
		{prefix: "/executive-dashboard", auth: true, tenant: true},
		{prefix: "/settings", auth: true, tenant: true},
		{prefix: "/followup", auth: true, tenant: true},
		{prefix: "/followuphistory", auth: true, tenant: true},
		{prefix: "/processperson", tenant: true},
		{prefix: "/customer", tenant: true},
		{prefix: "/revenue", tenant: true},
		{prefix: "/customer-details", auth: true, tenant: true},
		{prefix: "/customer-stages", auth: true, tenant: true},
		{prefix: "/eod-report", tenant: true},
		{prefix: "/template", auth: true, tenant: true},
		{prefix: "/process-history", auth: true, tenant: true},
		{prefix: "/role-permissions", auth: true, tenant: true},
		{prefix: "/processed", auth: true, tenant: true},
		{prefix: "/process-person-activities", auth: true, tenant: true},
		{prefix: "/manager-activities", auth: true, tenant: true},
		{prefix: "/hr-activities", auth: true, tenant: true},
		{prefix: "/leave", auth: true, tenant: true},
		{prefix: "/organization", auth: true, tenant: true},
		{prefix: "/schedule", auth: true, tenant: true},
		{prefix: "/payroll", auth: true, tenant: true},
	}

	requireAuth := platformauth.RequireAuthenticated()

	for _, group := range groups {
		group := group
		r.Route(group.prefix, func(sr chi.Router) {
			if group.auth {
				sr.Use(requireAuth)
			}
			if group.tenant {
				sr.Use(deps.resolveTenant)
			}
			if group.mount != nil {
				group.mount(sr)
			} else {
				// A real catch-all route, not a NotFound handler, so the
				// group's middleware still runs for unregistered paths.
				sr.Handle("/*", http.HandlerFunc(notImplemented))
			}
		})
	}
}

func notImplemented(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not implemented", http.StatusNotImplemented)
}
