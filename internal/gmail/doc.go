// Package gmail retrieves messages from the Gmail REST API and normalizes
// them for display.
//
// The package covers:
//   - Paginated listing with concurrent, bounded detail fetches (Fetcher)
//   - Sender parsing and RFC 2047 subject decoding (ParseSender, DecodeSubject)
//   - Renderable body extraction from MIME part trees (ExtractBody)
//   - The display model and its importance score (BuildDisplayMessage, Scorer)
//
// Requests carry a caller-supplied bearer token. A 401 from Gmail purges the
// cached token through an Invalidator and surfaces as ErrTokenExpired, other
// non-2xx responses as *ProviderError. A message whose detail fetch fails is
// dropped from its page and reported in Page.Dropped.
//
// Example usage:
//
//	fetcher, err := gmail.NewFetcher(gmail.FetcherConfig{
//	    Connect:     gmail.Dialer{}.Connect,
//	    Invalidator: resolver,
//	})
//	if err != nil {
//	    return err
//	}
//	page, err := fetcher.List(ctx, token, 25, "")
//	if errors.Is(err, gmail.ErrTokenExpired) {
//	    // ask the user to reconnect Gmail
//	}
package gmail
