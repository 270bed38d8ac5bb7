package handlers

import (
	"net/http"

	"github.com/jdramirez/servipro/internal/identity"
	"github.com/jdramirez/servipro/internal/settings"
)

// PublicHandler serves the unauthenticated branding endpoints consumed by
// the web client before login.
type PublicHandler struct {
	mapper    *identity.Mapper
	bootstrap *settings.Bootstrapper
}

func NewPublicHandler(mapper *identity.Mapper, bootstrap *settings.Bootstrapper) *PublicHandler {
	return &PublicHandler{mapper: mapper, bootstrap: bootstrap}
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	BackgroundColor string         `json:"background_color"`
	ThemeColor      string         `json:"theme_color"`
	Icons           []manifestIcon `json:"icons"`
}

// Manifest builds the PWA manifest from the company settings, falling
// back to the stock branding when no settings are reachable.
func (h *PublicHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	name := settings.DefaultCompanyName
	logo := "/static/logo.png"

	if cfg, err := h.bootstrap.GetOrCreate(r.Context(), h.mapper.ResolvePartnerGroupIDs(r.Context())); err == nil {
		if cfg.CompanyName != "" {
			name = cfg.CompanyName
		}
		if cfg.LogoURL != "" {
			logo = cfg.LogoURL
		}
	}

	manifest := webManifest{
		Name:            name,
		ShortName:       name,
		StartURL:        "/",
		Display:         "standalone",
		BackgroundColor: "#ffffff",
		ThemeColor:      "#1e3a5f",
		Icons: []manifestIcon{
			{Src: logo, Sizes: "192x192", Type: "image/png"},
			{Src: logo, Sizes: "512x512", Type: "image/png"},
		},
	}

	writeJSON(w, http.StatusOK, manifest)
}

// Logo redirects to the configured company logo, or the bundled default.
func (h *PublicHandler) Logo(w http.ResponseWriter, r *http.Request) {
	target := "/static/logo.png"
	if cfg, err := h.bootstrap.GetOrCreate(r.Context(), h.mapper.ResolvePartnerGroupIDs(r.Context())); err == nil && cfg.LogoURL != "" {
		target = cfg.LogoURL
	}
	http.Redirect(w, r, target, http.StatusFound)
}
