package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/digitalkrishi/officer-console/pkg/client"
	"github.com/digitalkrishi/officer-console/pkg/krishictl/auth"
	"github.com/digitalkrishi/officer-console/pkg/version"
)

const cliComponent = "krishictl"

// stderrLogger feeds resty debug output to the runtime's error writer so
// json and yaml output stay clean.
type stderrLogger struct {
	rt *runtimeState
}

func (l stderrLogger) Errorf(format string, v ...interface{}) { l.printf("ERROR", format, v...) }
func (l stderrLogger) Warnf(format string, v ...interface{})  { l.printf("WARN", format, v...) }
func (l stderrLogger) Debugf(format string, v ...interface{}) { l.printf("DEBUG", format, v...) }

func (l stderrLogger) printf(level, format string, v ...interface{}) {
	_, _ = fmt.Fprintf(l.rt.ErrWriter(), "["+level+"] "+format+"\n", v...)
}

func (rt *runtimeState) baseOptions() []client.Option {
	options := []client.Option{client.WithUserAgent(version.UserAgent(cliComponent))}
	if rt.cfg != nil && rt.cfg.Settings.Timeout != "" {
		if timeout, err := time.ParseDuration(rt.cfg.Settings.Timeout); err == nil {
			options = append(options, client.WithTimeout(timeout))
		}
	}
	return append(options, client.WithVerbose(rt.verbose, stderrLogger{rt: rt}))
}

// buildAnonymousClient talks to the server of the current context without a
// token. Used by auth login.
func buildAnonymousClient(rt *runtimeState) (*client.Client, error) {
	ctxCfg, err := rt.ResolveContext()
	if err != nil && rt.serverOverride == "" {
		return nil, err
	}
	server := rt.resolveServer(ctxCfg)
	if server == "" {
		return nil, errors.New("server is required")
	}
	caFile, insecure := "", false
	if ctxCfg != nil {
		caFile, insecure = ctxCfg.CAFile, ctxCfg.InsecureSkipTLSVerify
	}
	options := append(rt.baseOptions(),
		client.WithServer(server),
		client.WithTLSConfig(caFile, insecure),
	)
	return client.New(options...)
}

// buildClient returns a client carrying the officer's token. A 401 from the
// backend drops the stored token for the context.
func buildClient(rt *runtimeState) (*client.Client, error) {
	if rt.serverOverride != "" && rt.tokenOverride != "" {
		options := append(rt.baseOptions(),
			client.WithServer(rt.serverOverride),
			client.WithToken(rt.tokenOverride),
			client.WithTLSConfig("", false),
		)
		return client.New(options...)
	}

	if err := rt.EnsureConfigLoaded(); err != nil {
		return nil, err
	}
	ctxCfg, err := rt.ResolveContext()
	if err != nil {
		return nil, err
	}
	server := rt.resolveServer(ctxCfg)
	if server == "" {
		return nil, errors.New("server is required")
	}

	token := rt.tokenOverride
	var onUnauthorized func()
	if token == "" {
		token, err = resolveStoredToken(rt, ctxCfg.Name)
		if err != nil {
			return nil, err
		}
		store, _ := rt.TokenStore()
		name := ctxCfg.Name
		onUnauthorized = func() { _ = store.Delete(name) }
	}

	options := append(rt.baseOptions(),
		client.WithServer(server),
		client.WithToken(token),
		client.WithTLSConfig(ctxCfg.CAFile, ctxCfg.InsecureSkipTLSVerify),
		client.WithUnauthorizedHandler(onUnauthorized),
	)
	return client.New(options...)
}

func resolveStoredToken(rt *runtimeState, contextName string) (string, error) {
	store, err := rt.TokenStore()
	if err != nil {
		return "", err
	}
	token, ok, err := store.Get(contextName)
	if err != nil {
		return "", err
	}
	if !ok || token.AccessToken == "" {
		return "", auth.ErrNotAuthenticated
	}
	if token.Expired(time.Now()) {
		_ = store.Delete(contextName)
		return "", auth.ErrSessionExpired
	}
	return token.AccessToken, nil
}

// apiError maps a rejected token to the login hint.
func apiError(err error) error {
	if client.IsUnauthorized(err) {
		return auth.ErrSessionExpired
	}
	return err
}
