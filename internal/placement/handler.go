package placement

import (
	"fmt"
	"net/url"
	"path"
	"regexp"

	"github.com/placekit-labs/placekit/internal/manifest"
)

// MalformedHandlerURLError flags a handler URL that the portal will accept
// but that probably does not serve the widget. It is a warning: install
// proceeds with the URL as derived.
type MalformedHandlerURLError struct {
	URL    string
	Reason string
}

func (e *MalformedHandlerURLError) Error() string {
	return fmt.Sprintf("handler URL %q looks wrong: %s", e.URL, e.Reason)
}

// DeriveHandlerURL replaces entryFile and everything after it (query and
// fragment included) in pageURL with widgetFile. A URL whose last path
// segment is already widgetFile is returned unchanged, so applying it to
// its own output is a no-op.
//
// The returned URL is always usable as-is. The error, when non-nil, is a
// *MalformedHandlerURLError describing why the URL is suspect.
func DeriveHandlerURL(pageURL, entryFile, widgetFile string) (string, error) {
	return newHandlerRewriter(entryFile, widgetFile).derive(pageURL)
}

// handlerRewriter holds the compiled entry-file pattern for one file pair.
type handlerRewriter struct {
	entryFile  string
	widgetFile string
	entry      *regexp.Regexp
}

func newHandlerRewriter(entryFile, widgetFile string) *handlerRewriter {
	if entryFile == "" {
		entryFile = manifest.DefaultEntryFile
	}
	if widgetFile == "" {
		widgetFile = manifest.DefaultWidgetFile
	}
	return &handlerRewriter{
		entryFile:  entryFile,
		widgetFile: widgetFile,
		entry:      regexp.MustCompile(regexp.QuoteMeta(entryFile) + ".*$"),
	}
}

func (r *handlerRewriter) derive(pageURL string) (string, error) {
	if u, err := url.Parse(pageURL); err == nil && path.Base(u.Path) == r.widgetFile {
		return pageURL, checkScheme(pageURL, u)
	}

	if !r.entry.MatchString(pageURL) {
		if _, err := url.Parse(pageURL); err != nil {
			return pageURL, &MalformedHandlerURLError{URL: pageURL, Reason: err.Error()}
		}
		return pageURL, &MalformedHandlerURLError{
			URL:    pageURL,
			Reason: fmt.Sprintf("page URL does not contain %s", r.entryFile),
		}
	}

	handler := r.entry.ReplaceAllLiteralString(pageURL, r.widgetFile)
	u, err := url.Parse(handler)
	if err != nil {
		return handler, &MalformedHandlerURLError{URL: handler, Reason: err.Error()}
	}
	return handler, checkScheme(handler, u)
}

func checkScheme(handler string, u *url.URL) error {
	if u.Scheme != "https" {
		return &MalformedHandlerURLError{URL: handler, Reason: "the portal only loads https handlers"}
	}
	return nil
}
