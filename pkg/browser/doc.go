// Package browser defines the narrow capability coursecheck needs from a
// browser automation engine.
//
// Page objects and verifiers depend only on the Driver, Element and Window
// interfaces declared here. Concrete engines live in sub-packages:
//
//   - playwright: Playwright-driven Chromium, Firefox, WebKit or branded
//     Chrome/Edge channels (default engine)
//   - rod: Chrome DevTools Protocol through go-rod, Chromium family only
//   - static: plain HTTP fetch plus goquery, no JavaScript
//   - browsertest: an in-memory DOM for tests
//
// # Element lifetime
//
// An Element is only valid for the page it was found on. Once the driver
// navigates, every Element obtained before the navigation returns
// ErrStaleElement. Callers must re-query after each navigation instead of
// holding element handles across it.
//
// # Implicit wait
//
// SetImplicitWait configures how long FindOne keeps looking for a missing
// element before it gives up with ErrNoSuchElement. FindAll returns as soon
// as the query completes and reports an empty result as an empty slice.
package browser
