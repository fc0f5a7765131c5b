package verify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/entrhq/coursecheck/pkg/logging"
	"github.com/entrhq/coursecheck/pkg/pages"
)

// AssignmentMarker selects assignment links among the resource links that
// share their list.
const AssignmentMarker = "Assignment"

// AssignmentPathFormat is the path every assignment link must have, with the
// 1-based assignment number substituted.
const AssignmentPathFormat = "/system/files/uploads/courses/Testing/assignment%d.pdf"

// DefaultProbeTimeout bounds one link probe.
const DefaultProbeTimeout = 30 * time.Second

// maxDocumentSize caps how much of a linked document is read for validation.
const maxDocumentSize = 32 << 20

// ExpectedAssignmentPath returns the conventional path of assignment index.
func ExpectedAssignmentPath(index int) string {
	return fmt.Sprintf(AssignmentPathFormat, index)
}

// SubjectPages gives the verifiers the subject page. *pages.Cache implements it.
type SubjectPages interface {
	Subject() (*pages.SubjectPage, error)
}

// AssignmentLink is one assignment link read from the subject page.
type AssignmentLink struct {
	// Index is 1-based, in page order
	Index int
	Text  string
	// Href is the attribute as written in the page
	Href string
	// URL is Href resolved against the subject page
	URL string
}

// LinkProber checks whether links resolve on their server.
type LinkProber struct {
	client *http.Client
}

// NewLinkProber creates a prober. A nil client gets a cookie-aware client
// with DefaultProbeTimeout.
func NewLinkProber(client *http.Client) *LinkProber {
	if client == nil {
		jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		client = &http.Client{Jar: jar, Timeout: DefaultProbeTimeout}
	}
	return &LinkProber{client: client}
}

func (p *LinkProber) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &LinkProbeError{URL: target, Err: err}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &LinkProbeError{URL: target, Err: err}
	}
	return resp, nil
}

// Exists issues a GET for target. Any status other than 404 counts as
// existing. A request that fails outright reports false together with a
// *LinkProbeError.
func (p *LinkProber) Exists(ctx context.Context, target string) (bool, error) {
	resp, err := p.get(ctx, target)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode != http.StatusNotFound, nil
}

// Fetch downloads target, failing on any non-2xx status.
func (p *LinkProber) Fetch(ctx context.Context, target string) ([]byte, error) {
	resp, err := p.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("received status code %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return data, nil
}

// AssignmentVerifier checks the assignment links of the subject page.
type AssignmentVerifier struct {
	pages  SubjectPages
	prober *LinkProber
	logger *zap.Logger
}

// NewAssignmentVerifier creates a verifier. A nil prober gets NewLinkProber(nil).
func NewAssignmentVerifier(p SubjectPages, prober *LinkProber, logger *zap.Logger) *AssignmentVerifier {
	if prober == nil {
		prober = NewLinkProber(nil)
	}
	return &AssignmentVerifier{pages: p, prober: prober, logger: logging.OrNop(logger)}
}

// List reads the assignment links of the current document. Links whose text
// lacks AssignmentMarker are resource links and are skipped.
func (v *AssignmentVerifier) List(ctx context.Context) ([]AssignmentLink, error) {
	subject, err := v.pages.Subject()
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(subject.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid subject url: %w", err)
	}

	elements, err := subject.LinkElements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignment links: %w", err)
	}

	var links []AssignmentLink
	for _, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(text, AssignmentMarker) {
			continue
		}
		href, err := el.Attribute(ctx, "href")
		if err != nil {
			return nil, err
		}
		link := AssignmentLink{Index: len(links) + 1, Text: text, Href: href, URL: href}
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			link.URL = base.ResolveReference(ref).String()
		}
		links = append(links, link)
	}
	return links, nil
}

// VerifyExistence probes every assignment link and returns the indices of
// the links that do not exist. Missing links are logged as a warning and are
// never a failure.
func (v *AssignmentVerifier) VerifyExistence(ctx context.Context) ([]int, error) {
	links, err := v.List(ctx)
	if err != nil {
		return nil, err
	}

	var missing []int
	for _, link := range links {
		ok, err := v.prober.Exists(ctx, link.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			v.logger.Warn("link probe failed", zap.Int("assignment", link.Index), zap.Error(err))
		}
		if !ok {
			missing = append(missing, link.Index)
		}
	}

	if warning := LinkExistenceWarning(missing); warning != "" {
		v.logger.Warn(warning, zap.Ints("assignments", missing))
	}
	return missing, nil
}

// VerifyFormat returns the indices of links whose path is not
// ExpectedAssignmentPath(index). An absolute link must also point at the
// subject page's host.
func (v *AssignmentVerifier) VerifyFormat(ctx context.Context) ([]int, error) {
	subject, err := v.pages.Subject()
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(subject.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid subject url: %w", err)
	}

	links, err := v.List(ctx)
	if err != nil {
		return nil, err
	}

	var malformed []int
	for _, link := range links {
		if !wellFormed(link, base) {
			v.logger.Debug("assignment link has unexpected format",
				zap.Int("assignment", link.Index),
				zap.String("href", link.Href),
				zap.String("expected", ExpectedAssignmentPath(link.Index)))
			malformed = append(malformed, link.Index)
		}
	}
	return malformed, nil
}

func wellFormed(link AssignmentLink, base *url.URL) bool {
	u, err := url.Parse(strings.TrimSpace(link.Href))
	if err != nil {
		return false
	}
	if u.IsAbs() && !strings.EqualFold(u.Host, base.Host) {
		return false
	}
	return u.Path == ExpectedAssignmentPath(link.Index) && u.RawQuery == "" && u.Fragment == ""
}

var disablePDFConfigDir sync.Once

// VerifyDocuments downloads every link and validates it as a PDF. Links that
// cannot be fetched or do not hold a valid PDF are returned and logged as a
// warning.
func (v *AssignmentVerifier) VerifyDocuments(ctx context.Context) ([]int, error) {
	links, err := v.List(ctx)
	if err != nil {
		return nil, err
	}

	// Keep pdfcpu from creating its config directory under the user's home.
	disablePDFConfigDir.Do(func() { model.ConfigPath = "disable" })

	var invalid []int
	for _, link := range links {
		data, err := v.prober.Fetch(ctx, link.URL)
		if err == nil {
			err = api.Validate(bytes.NewReader(data), model.NewDefaultConfiguration())
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			v.logger.Debug("assignment document rejected", zap.Int("assignment", link.Index), zap.Error(err))
			invalid = append(invalid, link.Index)
		}
	}

	if warning := InvalidDocumentWarning(invalid); warning != "" {
		v.logger.Warn(warning, zap.Ints("assignments", invalid))
	}
	return invalid, nil
}
