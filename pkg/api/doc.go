// Package api exposes the farm record-keeping HTTP API.
//
// Every route under /api/v1 requires a bearer API token. Farm-scoped
// routes additionally pass through the access guard, which resolves the
// farm id from the path and verifies membership before the handler runs:
//
//	GET    /api/v1/farms                    list farms the caller belongs to
//	POST   /api/v1/farms                    create a farm (caller becomes owner)
//	GET    /api/v1/farms/{farmId}           any member
//	PUT    /api/v1/farms/{farmId}           owner or manager
//	DELETE /api/v1/farms/{farmId}           owner only
//	*      /api/v1/farms/{farmId}/members   owner/manager; managers limited to workers
//	*      /api/v1/farms/{farmId}/fields    any member (likewise crops, vehicles,
//	                                        applications, maintenance)
//
// Site admins pass every farm check. Handlers never re-derive access on
// their own; they consume the farm id and allow-list the guard attached
// to the request context.
package api
