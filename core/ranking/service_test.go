package ranking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/result"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/tests"
)

// seedClass records each student's exam marks in math & english then closes entry.
func seedClass(t *testing.T, env *testutil.Env, marks map[string][2]float64) session.Session {
	t.Helper()
	sess := testutil.CreateSession(t, env, "2024/2025", session.TermThird, true)
	for studentID, m := range marks {
		testutil.CreateResult(t, env, sess.ID, "jss1", studentID, "math", testutil.Exam(m[0]))
		testutil.CreateResult(t, env, sess.ID, "jss1", studentID, "english", testutil.Exam(m[1]))
	}
	if _, err := env.Sessions.CloseEntry(context.Background(), sess.ID); err != nil {
		t.Fatalf("CloseEntry() failed: %v", err)
	}
	return sess
}

func positions(results []result.Result) map[string]int {
	pos := make(map[string]int)
	for _, res := range results {
		pos[res.StudentID] = *res.Position
	}
	return pos
}

func TestService_RankClass(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sess := seedClass(t, env, map[string][2]float64{
		"s1": {70, 70}, // 70
		"s2": {60, 60}, // 60
		"s3": {65, 55}, // 60
		"s4": {50, 40}, // 45
	})

	ranked, err := env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)
	require.Len(t, ranked, 8)

	assert.Equal(t, map[string]int{"s1": 1, "s2": 2, "s3": 2, "s4": 4}, positions(ranked))
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, *ranked[i-1].Position, *ranked[i].Position, "results must be ordered by position")
	}
	assert.Equal(t, 70.0, *ranked[0].Average)

	// persisted
	stored, err := env.Results.Query(ctx, result.QueryFilter{ClassID: "jss1", SessionID: sess.ID})
	require.NoError(t, err)
	for _, res := range stored {
		require.NotNil(t, res.Position)
		require.NotNil(t, res.Average)
	}
	assert.Equal(t, positions(ranked), positions(stored))
}

func TestService_RankClass_Idempotent(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sess := seedClass(t, env, map[string][2]float64{
		"s1": {90, 90},
		"s2": {90, 90},
		"s3": {80, 80},
	})

	first, err := env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)
	second, err := env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, *first[i].Position, *second[i].Position)
		assert.Equal(t, *first[i].Average, *second[i].Average)
	}
	assert.Equal(t, map[string]int{"s1": 1, "s2": 1, "s3": 3}, positions(second))
}

func TestService_RankClass_Approved(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sess := seedClass(t, env, map[string][2]float64{"s1": {60, 80}})

	stored, err := env.Results.Query(ctx, result.QueryFilter{StudentID: "s1"})
	require.NoError(t, err)
	_, err = env.Results.Approve(ctx, stored[0].ID, "principal", "")
	require.NoError(t, err)

	ranked, err := env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)
	for _, res := range ranked {
		require.NotNil(t, res.Position)
		assert.Equal(t, 1, *res.Position)
		assert.Equal(t, 70.0, *res.Average)
	}
}

func TestService_RankClass_Preconditions(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	_, err := env.Ranking.RankClass(ctx, "jss1", "nope")
	assert.True(t, errors.Is(err, core.ErrNotFound), "RankClass() error = %v", err)

	open := testutil.CreateSession(t, env, "2024/2025", session.TermFirst, true)
	_, err = env.Ranking.RankClass(ctx, "jss1", open.ID)
	assert.True(t, errors.Is(err, ranking.ErrEntryOpen), "RankClass() error = %v", err)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))

	closed := testutil.CreateSession(t, env, "2024/2025", session.TermSecond, false)
	ranked, err := env.Ranking.RankClass(ctx, "empty", closed.ID)
	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.NotNil(t, ranked)
}

func TestService_RunPromotion(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sess := seedClass(t, env, map[string][2]float64{
		"s1": {70, 70}, // 70
		"s2": {50, 50}, // 50
		"s3": {40, 50}, // 45
	})

	_, err := env.Ranking.RunPromotion(ctx, "jss1", sess.ID, 50)
	assert.True(t, errors.Is(err, ranking.ErrNotRanked), "RunPromotion() error = %v", err)

	_, err = env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)

	_, err = env.Ranking.RunPromotion(ctx, "jss1", sess.ID, -1)
	assert.True(t, errors.Is(err, core.ErrInvalidArgument), "RunPromotion() error = %v", err)

	records, err := env.Ranking.RunPromotion(ctx, "jss1", sess.ID, 50)
	require.NoError(t, err)
	require.Len(t, records, 3)

	want := map[string]ranking.PromotionStatus{"s1": ranking.Promoted, "s2": ranking.Promoted, "s3": ranking.Repeated}
	for _, rec := range records {
		assert.Equal(t, want[rec.StudentID], rec.Status, "student %s", rec.StudentID)
		assert.Equal(t, 50.0, rec.Threshold)
		assert.Equal(t, "jss1", rec.FromClassID)
		assert.False(t, rec.Overridden)
	}
	assert.Equal(t, "s1", records[0].StudentID)

	// re-running recomputes in place
	again, err := env.Ranking.RunPromotion(ctx, "jss1", sess.ID, 60)
	require.NoError(t, err)
	require.Len(t, again, 3)
	ids := make(map[string]string)
	for _, rec := range records {
		ids[rec.StudentID] = rec.ID
	}
	want = map[string]ranking.PromotionStatus{"s1": ranking.Promoted, "s2": ranking.Repeated, "s3": ranking.Repeated}
	for _, rec := range again {
		assert.Equal(t, ids[rec.StudentID], rec.ID)
		assert.Equal(t, want[rec.StudentID], rec.Status, "student %s", rec.StudentID)
	}
}

func TestService_RunPromotion_DropsStudentsWithoutResults(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sess := seedClass(t, env, map[string][2]float64{
		"s1": {70, 70},
		"s2": {30, 30},
		"s3": {20, 20},
	})
	_, err := env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)
	records, err := env.Ranking.RunPromotion(ctx, "jss1", sess.ID, 50)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		if rec.StudentID == "s3" {
			_, err = env.Ranking.OverridePromotion(ctx, rec.ID, ranking.Override{Status: ranking.Promoted, Comment: "Transferred"}, "principal")
			require.NoError(t, err)
		}
	}

	_, err = env.Sessions.OpenEntry(ctx, sess.ID)
	require.NoError(t, err)
	for _, studentID := range []string{"s2", "s3"} {
		results, err := env.Results.Query(ctx, result.QueryFilter{StudentID: studentID, SessionID: sess.ID})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, res := range results {
			require.NoError(t, env.Results.Delete(ctx, res.ID))
		}
	}
	_, err = env.Sessions.CloseEntry(ctx, sess.ID)
	require.NoError(t, err)
	_, err = env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)

	records, err = env.Ranking.RunPromotion(ctx, "jss1", sess.ID, 50)
	require.NoError(t, err)
	got := make(map[string]ranking.PromotionRecord)
	for _, rec := range records {
		got[rec.StudentID] = rec
	}
	assert.NotContains(t, got, "s2")
	require.Contains(t, got, "s1")
	assert.Equal(t, 70.0, got["s1"].FinalAverage)
	// overridden records are sticky
	require.Contains(t, got, "s3")
	assert.True(t, got["s3"].Overridden)

	stored, err := env.Ranking.QueryPromotions(ctx, "jss1", sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestService_OverridePromotion(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sess := seedClass(t, env, map[string][2]float64{
		"s1": {70, 70},
		"s2": {30, 30},
	})
	_, err := env.Ranking.RankClass(ctx, "jss1", sess.ID)
	require.NoError(t, err)
	records, err := env.Ranking.RunPromotion(ctx, "jss1", sess.ID, 50)
	require.NoError(t, err)

	var repeated ranking.PromotionRecord
	for _, rec := range records {
		if rec.StudentID == "s2" {
			repeated = rec
		}
	}
	require.Equal(t, ranking.Repeated, repeated.Status)

	tests := []struct {
		name    string
		ovr     ranking.Override
		wantErr error
	}{
		{name: "blank comment", ovr: ranking.Override{Status: ranking.Promoted, Comment: "   "}, wantErr: core.ErrInvalidArgument},
		{name: "invalid status", ovr: ranking.Override{Status: "Expelled", Comment: "x"}, wantErr: core.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.Ranking.OverridePromotion(ctx, repeated.ID, tt.ovr, "admin"); !errors.Is(err, tt.wantErr) {
				t.Errorf("OverridePromotion() error = %v; want %v", err, tt.wantErr)
			}
		})
	}

	_, err = env.Ranking.OverridePromotion(ctx, "nope", ranking.Override{Status: ranking.Promoted, Comment: "x"}, "admin")
	assert.True(t, errors.Is(err, core.ErrNotFound), "OverridePromotion() error = %v", err)

	got, err := env.Ranking.OverridePromotion(ctx, repeated.ID, ranking.Override{Status: ranking.Promoted, Comment: "Sat the resit"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, ranking.Promoted, got.Status)
	assert.True(t, got.Overridden)
	assert.Equal(t, "Sat the resit", got.OverrideComment)
	assert.Equal(t, "admin", got.OverriddenBy)
	require.NotNil(t, got.OverriddenAt)

	_, err = env.Ranking.OverridePromotion(ctx, repeated.ID, ranking.Override{Status: ranking.Repeated, Comment: "again"}, "admin")
	assert.True(t, errors.Is(err, ranking.ErrAlreadyOverridden), "OverridePromotion() error = %v", err)

	// overrides are sticky
	again, err := env.Ranking.RunPromotion(ctx, "jss1", sess.ID, 50)
	require.NoError(t, err)
	for _, rec := range again {
		if rec.StudentID == "s2" {
			assert.Equal(t, ranking.Promoted, rec.Status)
			assert.True(t, rec.Overridden)
		}
	}

	listed, err := env.Ranking.QueryPromotions(ctx, "jss1", sess.ID)
	require.NoError(t, err)
	assert.Equal(t, again, listed)
}
