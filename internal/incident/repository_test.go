package incident

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func maintenance(id string, start, end *time.Time) Incident {
	return Incident{ID: id, Type: TypeMaintenance, Status: StatusInvestigating, ScheduledStart: start, ScheduledEnd: end}
}

func at(t time.Time) *time.Time { return &t }

func TestScheduledMaintenance_ExcludesEnded(t *testing.T) {
	all := []Incident{
		maintenance("ended", at(now.Add(-2*time.Hour)), at(now.Add(-time.Second))),
		maintenance("ending-now", at(now.Add(-time.Hour)), at(now)),
	}

	got := ScheduledMaintenance(all, now)
	require.Len(t, got, 1)
	assert.Equal(t, "ending-now", got[0].ID)
}

func TestScheduledMaintenance_OrderAndFilters(t *testing.T) {
	resolved := maintenance("resolved", at(now.Add(time.Hour)), nil)
	resolved.Status = StatusResolved

	all := []Incident{
		maintenance("late", at(now.Add(48*time.Hour)), nil),
		maintenance("undated", nil, nil),
		maintenance("soon", at(now.Add(time.Hour)), at(now.Add(3*time.Hour))),
		resolved,
		{ID: "incident", Type: TypeIncident, Status: StatusInvestigating},
	}

	got := ScheduledMaintenance(all, now)
	ids := make([]string, len(got))
	for i, inc := range got {
		ids[i] = inc.ID
	}
	assert.Equal(t, []string{"undated", "soon", "late"}, ids)
}

func TestActiveAndRecent(t *testing.T) {
	all := []Incident{
		{ID: "3", Type: TypeIncident, Status: StatusMonitoring},
		{ID: "2", Type: TypeIncident, Status: StatusResolved},
		{ID: "1", Type: TypeMaintenance, Status: StatusInvestigating},
	}

	active := Active(all)
	require.Len(t, active, 1)
	assert.Equal(t, "3", active[0].ID)

	assert.Len(t, Recent(all, 2), 2)
	assert.Len(t, Recent(all, 50), 3)
	assert.Len(t, Recent(all, 0), 3)
	assert.NotNil(t, Active(nil))
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestRepository_LoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "2026-10-01-cdn.md", "---\ntitle: CDN errors\n---\n### 2026-10-01T10:00:00Z - Resolved\nfixed\n")
	writeDoc(t, dir, "2026-10-15-api.md", "---\ntitle: API errors\nseverity: critical\n---\n### 2026-10-15T10:00:00Z - Identified\nrollback\n")
	writeDoc(t, dir, "2026-10-10-broken.md", "---\ntitle: never closed\n")
	writeDoc(t, dir, "2026-10-20-maint.md", "---\ntitle: Upgrade\ntype: maintenance\nscheduled_start: 2026-10-20T02:00:00Z\nscheduled_end: 2026-10-20T04:00:00Z\n---\n")
	writeDoc(t, dir, "README.txt", "not an incident")

	repo := NewRepository(NewDirSource(dir), zerolog.Nop(), WithClock(clock))
	ctx := context.Background()

	all := repo.Load(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "2026-10-20-maint", all[0].ID)
	assert.Equal(t, "2026-10-15-api", all[1].ID)
	assert.Equal(t, "2026-10-01-cdn", all[2].ID)

	active := repo.Active(ctx)
	require.Len(t, active, 1)
	assert.Equal(t, "API errors", active[0].Title)

	bundle := repo.Bundle(ctx)
	assert.Len(t, bundle.Active, 1)
	require.Len(t, bundle.Maintenance, 1)
	assert.Equal(t, "Upgrade", bundle.Maintenance[0].Title)
	assert.Len(t, bundle.Recent, 3)

	assert.Len(t, repo.Recent(ctx, 1), 1)
	assert.Len(t, repo.ScheduledMaintenance(ctx), 1)
}

func TestRepository_MissingDirectoryIsEmpty(t *testing.T) {
	repo := NewRepository(NewDirSource(filepath.Join(t.TempDir(), "missing")), zerolog.Nop())
	all := repo.Load(context.Background())
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestRepository_NilSource(t *testing.T) {
	repo := NewRepository(nil, zerolog.Nop())
	assert.Empty(t, repo.Bundle(context.Background()).Recent)
}

type failingSource struct{ err error }

func (f failingSource) Documents(context.Context) ([]Document, error) { return nil, f.err }

func TestRepository_SourceFailureIsEmpty(t *testing.T) {
	repo := NewRepository(failingSource{errors.New("permission denied")}, zerolog.Nop())
	assert.Empty(t, repo.Load(context.Background()))
}

// fakeS3 serves objects from a map, two keys per page.
type fakeS3 struct {
	objects map[string]string
	keys    []string
	getErr  map[string]error
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var matching []string
	for _, k := range f.keys {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			matching = append(matching, k)
		}
	}

	start := 0
	if in.ContinuationToken != nil {
		for i, k := range matching {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := start + 2
	out := &s3.ListObjectsV2Output{}
	if end < len(matching) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(matching[end])
	} else {
		end = len(matching)
	}
	for _, k := range matching[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), LastModified: aws.Time(now)})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	if err := f.getErr[key]; err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(f.objects[key]))}, nil
}

func TestS3Source_PagesAndFilters(t *testing.T) {
	client := &fakeS3{
		keys: []string{
			"incidents/2026-10-01-a.md",
			"incidents/2026-10-02-b.md",
			"incidents/notes.txt",
			"incidents/2026-10-03-c.md",
			"other/2026-10-04-d.md",
		},
		objects: map[string]string{
			"incidents/2026-10-01-a.md": "---\ntitle: A\n---\n",
			"incidents/2026-10-02-b.md": "---\ntitle: B\n---\n",
			"incidents/2026-10-03-c.md": "---\ntitle: C\n---\n",
		},
		getErr: map[string]error{},
	}

	src := NewS3SourceWithClient(client, "status", "/incidents/")
	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, now, docs[0].ModTime)

	all := NewRepository(src, zerolog.Nop()).Load(context.Background())
	require.Len(t, all, 3)
	assert.Equal(t, "2026-10-03-c", all[0].ID)
	assert.Equal(t, "C", all[0].Title)
}

func TestS3Source_PartialFailure(t *testing.T) {
	client := &fakeS3{
		keys: []string{"a.md", "b.md"},
		objects: map[string]string{
			"a.md": "---\ntitle: A\n---\n",
		},
		getErr: map[string]error{"b.md": errors.New("access denied")},
	}

	src := NewS3SourceWithClient(client, "status", "")
	docs, err := src.Documents(context.Background())
	assert.Error(t, err)
	assert.Len(t, docs, 1)

	all := NewRepository(src, zerolog.Nop()).Load(context.Background())
	assert.Len(t, all, 1)
}

func TestNewS3Source_RequiresBucket(t *testing.T) {
	_, err := NewS3Source(context.Background(), S3Config{})
	assert.Error(t, err)
}
