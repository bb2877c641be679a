package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type KVTestSuite struct {
	suite.Suite
	newKV func(t *testing.T) KV
	kv    KV
}

func (s *KVTestSuite) SetupTest() {
	s.kv = s.newKV(s.T())
}

func (s *KVTestSuite) TearDownTest() {
	s.Require().NoError(s.kv.Close())
}

func TestMemoryKVSuite(t *testing.T) {
	suite.Run(t, &KVTestSuite{newKV: func(*testing.T) KV {
		return NewMemoryKV(0)
	}})
}

func TestGormKVSuite(t *testing.T) {
	suite.Run(t, &KVTestSuite{newKV: func(t *testing.T) KV {
		kv, err := OpenGormKV("sqlite", filepath.Join(t.TempDir(), "kv.db"))
		require.NoError(t, err)
		return kv
	}})
}

func TestRedisKVSuite(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	suite.Run(t, &KVTestSuite{newKV: func(t *testing.T) KV {
		kv, err := NewRedisKV(context.Background(), addr)
		require.NoError(t, err)
		keys, err := kv.Keys(context.Background(), "kvtest_")
		require.NoError(t, err)
		require.NoError(t, kv.Delete(context.Background(), keys...))
		return kv
	}})
}

func (s *KVTestSuite) TestGetMissing() {
	_, err := s.kv.Get(context.Background(), "kvtest_missing")
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *KVTestSuite) TestSetGetOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.kv.Set(ctx, "kvtest_a", "one"))
	s.Require().NoError(s.kv.Set(ctx, "kvtest_a", "two"))

	v, err := s.kv.Get(ctx, "kvtest_a")
	s.Require().NoError(err)
	s.Require().Equal("two", v)
}

func (s *KVTestSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.kv.Set(ctx, "kvtest_a", "1"))
	s.Require().NoError(s.kv.Set(ctx, "kvtest_b", "2"))

	s.Require().NoError(s.kv.Delete(ctx, "kvtest_a", "kvtest_never"))
	s.Require().NoError(s.kv.Delete(ctx))

	_, err := s.kv.Get(ctx, "kvtest_a")
	s.Require().ErrorIs(err, ErrNotFound)
	v, err := s.kv.Get(ctx, "kvtest_b")
	s.Require().NoError(err)
	s.Require().Equal("2", v)
}

func (s *KVTestSuite) TestKeysPrefixIsLiteral() {
	ctx := context.Background()
	for _, key := range []string{"kvtest_x:2", "kvtest_x:1", "kvtestAx:1", "other"} {
		s.Require().NoError(s.kv.Set(ctx, key, "v"))
	}

	keys, err := s.kv.Keys(ctx, "kvtest_x:")
	s.Require().NoError(err)
	s.Require().Equal([]string{"kvtest_x:1", "kvtest_x:2"}, keys)

	// "_" must not behave as a wildcard.
	keys, err = s.kv.Keys(ctx, "kvtest_")
	s.Require().NoError(err)
	s.Require().Equal([]string{"kvtest_x:1", "kvtest_x:2"}, keys)
}

func TestMemoryKVQuota(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV(10)

	require.NoError(t, kv.Set(ctx, "k", "12345"))
	require.Equal(t, 6, kv.Size())

	require.ErrorIs(t, kv.Set(ctx, "j", "123456789"), ErrQuotaExceeded)
	_, err := kv.Get(ctx, "j")
	require.ErrorIs(t, err, ErrNotFound)

	// Replacing a value only counts the difference.
	require.NoError(t, kv.Set(ctx, "k", "123456789"))
	require.Equal(t, 10, kv.Size())

	require.NoError(t, kv.Delete(ctx, "k"))
	require.Equal(t, 0, kv.Size())
}

func TestEscapeHelpers(t *testing.T) {
	require.Equal(t, `gca\_virtual\_\%`, escapeLike("gca_virtual_%"))
	require.Equal(t, `a\*b\?\[c\]`, escapeGlob("a*b?[c]"))
	require.Equal(t, []string{"a", "b"}, dedupSorted([]string{"a", "a", "b", "b"}))
}
