// Package context provides iplive specific context like the logger, filesystem, HTTP client and channel catalog.
package context

import (
	ctx "context"
	"net/http"
	"os"
	"time"

	"github.com/kevsosmooth/ip-live/internal/catalog"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// CContext is a context struct that gets passed around the application.
type CContext struct {
	Catalog *catalog.Catalog
	Ctx     ctx.Context
	Fs      afero.Fs
	HTTP    *http.Client
	Log     *logrus.Logger
}

// NewCContext returns an initialized CContext struct
func NewCContext() (*CContext, error) {
	theCtx := ctx.Background()

	level, levelErr := logrus.ParseLevel(viper.GetString("log.level"))
	if levelErr != nil {
		level = logrus.InfoLevel
	}

	log := &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			FullTimestamp: true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: level,
	}

	fs := afero.NewOsFs()

	cat, catErr := catalog.Load(fs, viper.GetString("catalog"))
	if catErr != nil {
		return nil, catErr
	}

	timeout := viper.GetDuration("http.timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	context := &CContext{
		Catalog: cat,
		Ctx:     theCtx,
		Fs:      fs,
		HTTP:    &http.Client{Timeout: timeout},
		Log:     log,
	}

	log.Debugln("Context: Context build complete")

	return context, nil
}

// NewTestCContext returns a CContext backed by an in-memory filesystem and the built-in catalog.
func NewTestCContext() *CContext {
	return &CContext{
		Catalog: catalog.Default(),
		Ctx:     ctx.Background(),
		Fs:      afero.NewMemMapFs(),
		HTTP:    http.DefaultClient,
		Log: &logrus.Logger{
			Out:       os.Stderr,
			Formatter: &logrus.TextFormatter{FullTimestamp: true},
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.WarnLevel,
		},
	}
}
