package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultUserAgent is sent when none is configured
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// Fetcher implements service.SourceFetcher
type Fetcher struct {
	client          *http.Client
	maxResponseSize int64
	userAgent       string
	channelBase     string
}

// Config holds HTTP fetcher configuration
type Config struct {
	Timeout         time.Duration
	MaxResponseSize int64
	UserAgent       string
	// ChannelBase is the public preview prefix of chat channels
	ChannelBase string
}

// Message is one post of a public channel preview
type Message struct {
	Time time.Time
	Text string
}

// NewFetcher creates a new HTTP fetcher
func NewFetcher(config Config) *Fetcher {
	if config.MaxResponseSize <= 0 {
		config.MaxResponseSize = 16 << 20
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.ChannelBase == "" {
		config.ChannelBase = "https://t.me/s/"
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxResponseSize: config.MaxResponseSize,
		userAgent:       config.UserAgent,
		channelBase:     config.ChannelBase,
	}
}

// FetchText implements service.SourceFetcher.
// HTML bodies are reduced to their text content, anything else is returned as is.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	body, contentType, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if !looksLikeHTML(contentType, body) {
		return string(body), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse html of %s: %w", rawURL, err)
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	return doc.Text(), nil
}

// FetchChannel returns the posts of a public channel preview newer than since
func (f *Fetcher) FetchChannel(ctx context.Context, channel string, since time.Time) ([]Message, error) {
	channel = strings.TrimPrefix(strings.TrimSpace(channel), "@")
	if channel == "" {
		return nil, fmt.Errorf("empty channel name")
	}

	body, _, err := f.get(ctx, f.channelBase+url.PathEscape(channel))
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse channel %s: %w", channel, err)
	}

	var messages []Message
	doc.Find("div.tgme_widget_message").Each(func(_ int, s *goquery.Selection) {
		var posted time.Time
		if value, ok := s.Find("time[datetime]").First().Attr("datetime"); ok {
			posted, _ = time.Parse(time.RFC3339, value)
		}
		if !since.IsZero() && !posted.After(since) {
			return
		}

		text := s.Find("div.tgme_widget_message_text").First()
		if text.Length() == 0 {
			return
		}
		text.Find("br").ReplaceWithHtml("\n")
		messages = append(messages, Message{Time: posted, Text: text.Text()})
	})
	return messages, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	// Limit response size
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 512)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}
