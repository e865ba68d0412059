package api

import (
	"net/http"

	"formgate/internal/auth"
	"formgate/internal/db"
	"formgate/internal/quota"
	"formgate/internal/ratelimit"
	"formgate/internal/service"
	"formgate/internal/storage"
	"formgate/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Dependencies struct {
	DB          *db.Pool
	Log         *zap.Logger
	Templates   *service.TemplateService
	Invitations *service.InvitationService
	Responses   *service.ResponseService
	Export      *service.ExportService
	Suggest     *service.SuggestService
	Quota       quota.Ledger
	Limiter     ratelimit.Limiter
	Hub         *ws.Hub
	Storage     storage.Storage
	Policy      *storage.UploadPolicy
	JWTSecret   string
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(d.Log))

	// Public candidate surface. Unauthenticated, throttled per IP.
	r.Group(func(r chi.Router) {
		r.Use(d.rateLimit)
		r.Get("/forms/{token}", d.resolveForm)
		r.Post("/forms/{token}/response", d.submitForm)
	})

	// Recruiter surface. JWT with org scope required.
	r.Group(func(r chi.Router) {
		jwtConfig := auth.NewJWTConfig(d.JWTSecret)
		r.Use(jwtConfig.Middleware)

		r.Post("/templates", d.createTemplate)
		r.Get("/templates", d.listTemplates)
		r.Get("/templates/{id}", d.getTemplate)
		r.Patch("/templates/{id}", d.updateTemplate)
		r.Post("/templates/suggest", d.suggestFields)

		r.Post("/invitations", d.issueInvitation)
		r.Get("/invitations/{id}", d.getInvitation)
		r.Post("/invitations/{id}/resend", d.resendInvitation)
		r.Get("/invitations/{id}/response", d.getResponse)
		r.Get("/applications/{id}/invitations", d.listApplicationInvitations)

		r.Get("/quota", d.peekQuota)
		r.Get("/responses/export", d.exportResponses)
		r.Post("/files/sign", d.signFile)

		r.Get("/ws", d.wsHandler)
	})

	return r
}
