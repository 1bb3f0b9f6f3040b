//go:build ruleguard

// Package gorules holds go-ruleguard lint rules for this module.
// Run with: golangci-lint run (gocritic ruleguard checker, rules: rules/*.go)
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// CategorizedErrors flags fmt.Errorf in the packages whose errors are matched
// by category in the HTTP API. Build them with internal/errors instead.
func CategorizedErrors(m dsl.Matcher) {
	m.Match(`return $*_, fmt.Errorf($*args)`, `return fmt.Errorf($*args)`).
		Where(m.File().PkgPath.Matches(`/internal/(inaturalist|search)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("return an errors.New(...).Category(...).Build() error so callers can map it to a status")
}

// LoggerFields flags formatted log messages. Messages stay constant and
// variable data goes into typed fields.
func LoggerFields(m dsl.Matcher) {
	m.Import("github.com/gingerhendrix/my-nat/internal/logger")

	m.Match(`$log.$method(fmt.Sprintf($*_), $*_)`).
		Where(m["log"].Type.Implements("logger.Logger") &&
			m["method"].Text.Matches(`^(Trace|Debug|Info|Warn|Error)$`)).
		Report("use a constant message with logger fields instead of fmt.Sprintf")
}

// TestingContext flags context.Background in tests; t.Context() is
// cancelled when the test ends.
func TestingContext(m dsl.Matcher) {
	m.Match(`$fn(context.Background(), $*_)`, `$ctx := context.Background()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of context.Background()")
}

// WaitGroupGo flags the Add/Done goroutine pattern.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... })").
		Suggest("$wg.Go(func() { $body })")
}

// ResponseBodyLimit flags unbounded reads of remote response bodies.
func ResponseBodyLimit(m dsl.Matcher) {
	m.Match(`io.ReadAll($resp.Body)`).
		Where(m["resp"].Type.Is("*http.Response")).
		Report("wrap $resp.Body in io.LimitReader before reading it")
}
