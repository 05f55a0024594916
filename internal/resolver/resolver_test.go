package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	errs "github.com/openfga/consentsync/internal/errors"
	"github.com/openfga/consentsync/internal/mocks"
	"github.com/openfga/consentsync/pkg/dataservice"
	"github.com/openfga/consentsync/pkg/types"
)

func ptr(s string) *string { return &s }

func newResolver(t *testing.T, store Store) *Resolver {
	t.Helper()

	r, err := New(store, WithCacheSize(10))
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r
}

func TestResolveStudy(t *testing.T) {
	ctx := context.Background()

	t.Run("single_match_is_cached", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindStudies(gomock.Any(), "phs001168").
			Return([]dataservice.Study{{ID: "SD_1", ExternalID: "phs001168", Version: "v2.p2"}}, nil).
			Times(1)

		r := newResolver(t, store)

		for i := 0; i < 3; i++ {
			study, err := r.ResolveStudy(ctx, "phs001168")
			require.NoError(t, err)
			require.Equal(t, types.StudyRef{ExternalID: "phs001168", ID: "SD_1", Version: "v2.p2"}, study)
		}
	})

	t.Run("no_match", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindStudies(gomock.Any(), "phs1").Return(nil, nil)

		_, err := newResolver(t, store).ResolveStudy(ctx, "phs1")
		require.ErrorIs(t, err, errs.ErrNotFound)
		require.EqualError(t, err, "no study found for phs1: not found")
	})

	t.Run("multiple_matches", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindStudies(gomock.Any(), "phs1").Return([]dataservice.Study{
			{ID: "SD_1", ExternalID: "phs1", Version: "v1.p1"},
			{ID: "SD_2", ExternalID: "phs1", Version: "v1.p1"},
		}, nil)

		_, err := newResolver(t, store).ResolveStudy(ctx, "phs1")
		require.ErrorIs(t, err, errs.ErrAmbiguousMatch)
	})

	t.Run("missing_version", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindStudies(gomock.Any(), "phs1").Return([]dataservice.Study{{ID: "SD_1", ExternalID: "phs1"}}, nil)

		_, err := newResolver(t, store).ResolveStudy(ctx, "phs1")
		require.ErrorIs(t, err, errs.ErrNotFound)
		require.ErrorContains(t, err, "phs1 has no version in dataservice")
	})

	t.Run("errors_are_not_cached", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		gomock.InOrder(
			store.EXPECT().FindStudies(gomock.Any(), "phs1").Return(nil, errs.ErrUpstreamTimeout),
			store.EXPECT().FindStudies(gomock.Any(), "phs1").Return([]dataservice.Study{{ID: "SD_1", ExternalID: "phs1", Version: "v1.p1"}}, nil),
		)

		r := newResolver(t, store)

		_, err := r.ResolveStudy(ctx, "phs1")
		require.ErrorIs(t, err, errs.ErrUpstreamTimeout)

		study, err := r.ResolveStudy(ctx, "phs1")
		require.NoError(t, err)
		require.Equal(t, "SD_1", study.ID)
	})

	t.Run("caches_are_run_scoped", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindStudies(gomock.Any(), "phs1").
			Return([]dataservice.Study{{ID: "SD_1", ExternalID: "phs1", Version: "v1.p1"}}, nil).
			Times(2)

		_, err := newResolver(t, store).ResolveStudy(ctx, "phs1")
		require.NoError(t, err)
		_, err = newResolver(t, store).ResolveStudy(ctx, "phs1")
		require.NoError(t, err)
	})
}

func TestResolveBiospecimen(t *testing.T) {
	ctx := context.Background()

	t.Run("single_match_is_never_cached", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindBiospecimens(gomock.Any(), "SD_1", "A1").
			Return([]dataservice.Biospecimen{{ID: "BS_1", ExternalSampleID: "A1", ConsentCode: ptr("phs1.c1"), ConsentType: ptr("GRU"), Visible: true}}, nil).
			Times(2)

		r := newResolver(t, store)
		for i := 0; i < 2; i++ {
			bs, err := r.ResolveBiospecimen(ctx, "A1", "SD_1")
			require.NoError(t, err)
			require.Equal(t, "BS_1", bs.ID)
			require.Equal(t, "phs1.c1", *bs.ConsentCode)
			require.Equal(t, "GRU", *bs.ConsentType)
			require.True(t, bs.Visible)
		}
	})

	t.Run("no_match", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindBiospecimens(gomock.Any(), "SD_1", "A1").Return([]dataservice.Biospecimen{}, nil)

		_, err := newResolver(t, store).ResolveBiospecimen(ctx, "A1", "SD_1")
		require.ErrorIs(t, err, errs.ErrNotFound)
		require.Equal(t, errs.ClassSkip, errs.Classify(err))
	})

	t.Run("multiple_matches", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindBiospecimens(gomock.Any(), "SD_1", "A1").
			Return([]dataservice.Biospecimen{{ID: "BS_1"}, {ID: "BS_2"}}, nil)

		_, err := newResolver(t, store).ResolveBiospecimen(ctx, "A1", "SD_1")
		require.ErrorIs(t, err, errs.ErrAmbiguousMatch)
		require.ErrorContains(t, err, "more than one biospecimen found for A1 in SD_1")
	})

	t.Run("upstream_errors_pass_through", func(t *testing.T) {
		mockController := gomock.NewController(t)
		defer mockController.Finish()

		store := mocks.NewMockRecordStore(mockController)
		store.EXPECT().FindBiospecimens(gomock.Any(), "SD_1", "A1").Return(nil, errs.ErrUpstreamTimeout)

		_, err := newResolver(t, store).ResolveBiospecimen(ctx, "A1", "SD_1")
		require.ErrorIs(t, err, errs.ErrUpstreamTimeout)
	})
}
