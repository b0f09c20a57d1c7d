package transport

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vibeapi/app/config"
)

const (
	posthogPlaceholder = "<!-- POSTHOG-PLACEHOLDER -->"
	posthogKeyVar      = "${POSTHOG_PROJECT_API_KEY}"
	posthogHostVar     = "${POSTHOG_API_HOST}"

	fallbackPage = `<h1 color="red">Failed to get HTML</h1>`
)

const posthogSnippet = `<script type="module">
  import posthog from "https://esm.sh/posthog-js@1";
  posthog.init(${POSTHOG_PROJECT_API_KEY}, {
    api_host: ${POSTHOG_API_HOST},
    person_profiles: "identified_only",
  });
</script>`

// IndexPage serves PUBLIC_DIR/index.html. The file is read on every request so
// the page can be edited without a restart.
type IndexPage struct {
	path   string
	site   config.SiteConfig
	logger *slog.Logger
}

func NewIndexPage(site config.SiteConfig, logger *slog.Logger) *IndexPage {
	return &IndexPage{
		path:   filepath.Join(site.PublicDir, "index.html"),
		site:   site,
		logger: logger,
	}
}

func (p *IndexPage) Render() string {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			p.logger.Error("read index page failed", "path", p.path, "err", err)
		} else {
			p.logger.Warn("index page missing", "path", p.path)
		}
		return fallbackPage
	}
	return injectAnalytics(string(raw), p.site.PosthogProjectKey, p.site.PosthogAPIHost)
}

// injectAnalytics replaces the placeholder with the PostHog loader when both
// the project key and the host are configured.
func injectAnalytics(page, key, host string) string {
	if key == "" || host == "" {
		return page
	}
	snippet := strings.NewReplacer(
		posthogKeyVar, jsString(key),
		posthogHostVar, jsString(host),
	).Replace(posthogSnippet)
	return strings.ReplaceAll(page, posthogPlaceholder, snippet)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
