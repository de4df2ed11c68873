package droptesting

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datatrails/go-datatrails-common/azblob"
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/forestrie/go-merkledrop/storage"
	"github.com/forestrie/go-merkledrop/storage/azblobstore"
	"github.com/forestrie/go-merkledrop/storage/leveldbstore"
	"github.com/forestrie/go-merkledrop/storage/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type StoreKind string

const (
	StoreMemory  StoreKind = "memory"
	StoreLevelDB StoreKind = "leveldb"
	StoreAzurite StoreKind = "azurite"
)

type TestConfig struct {
	TestLabelPrefix string
	// LogLevel defaults to NOOP so that tests are quiet
	LogLevel  string
	Container string // can be "" defaults to TestLabelPrefix
}

type TestContext struct {
	Log logger.Logger
	T   *testing.T
	Cfg TestConfig
}

func NewTestContext(t *testing.T, cfg TestConfig) TestContext {
	level := cfg.LogLevel
	if level == "" {
		level = "NOOP"
	}
	logger.New(level)
	t.Cleanup(logger.OnExit)

	return TestContext{
		Log: logger.Sugar.WithServiceName(cfg.TestLabelPrefix),
		T:   t,
		Cfg: cfg,
	}
}

func (c *TestContext) GetLog() logger.Logger { return c.Log }

// UniqueLabel returns the label prefix with a random suffix, suitable for
// isolating objects created by one test from another.
func (c *TestContext) UniqueLabel() string {
	return c.Cfg.TestLabelPrefix + "-" + uuid.NewString()
}

// NewStore returns an empty store of the requested kind. Stores are closed
// when the test completes.
func (c *TestContext) NewStore(kind StoreKind) storage.ObjectStore {
	switch kind {
	case StoreLevelDB:
		s, err := leveldbstore.Open(c.Log, leveldbstore.Config{Path: filepath.Join(c.T.TempDir(), "claims")})
		require.NoError(c.T, err)
		c.T.Cleanup(func() { _ = s.Close() })
		return s
	case StoreAzurite:
		return azblobstore.New(c.Log, c.NewAzuriteStorer())
	default:
		return memstore.New()
	}
}

// NewAzuriteStorer connects to the blob store emulator. The container is
// created if it does not exist.
func (c *TestContext) NewAzuriteStorer() *azblob.Storer {
	container := c.Cfg.Container
	if container == "" {
		container = strings.ReplaceAll(strings.ToLower(c.Cfg.TestLabelPrefix), "_", "")
	}
	storer, err := azblob.NewDev(azblob.NewDevConfigFromEnv(), container)
	if err != nil {
		c.T.Fatalf("failed to connect to blob store emulator: %v", err)
	}
	client := storer.GetServiceClient()
	// Note: we expect a 'already exists' error here and ignore it.
	_, _ = client.CreateContainer(context.Background(), container, nil)
	return storer
}
