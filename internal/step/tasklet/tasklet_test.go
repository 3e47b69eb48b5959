package tasklet_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/internal/step/tasklet"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	localstorage "github.com/tigerroll/datalake/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	batchmodel "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
)

const (
	songS1  = `{"num_songs": 1, "artist_id": "A1", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Test Artist", "song_id": "S1", "title": "Test Song", "duration": 180.0, "year": 2000}`
	eventE1 = `{"artist":"Test Artist","auth":"Logged In","firstName":"Ann","gender":"F","itemInSession":0,"lastName":"Lee","length":180.0,"level":"free","location":"X","method":"PUT","page":"NextSong","registration":1540919166796.0,"sessionId":100,"song":"Test Song","status":200,"ts":1542241826796,"userAgent":"Y","userId":"7"}`
	homeE2  = `{"artist":null,"auth":"Logged In","firstName":"Ann","gender":"F","itemInSession":1,"lastName":"Lee","length":null,"level":"free","location":"X","method":"GET","page":"Home","registration":1540919166796.0,"sessionId":100,"song":null,"status":200,"ts":1542241900000,"userAgent":"Y","userId":"7"}`
)

type fixture struct {
	inputDir  string
	outputDir string
	cfg       *config.Config
	deps      tasklet.Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{inputDir: t.TempDir(), outputDir: t.TempDir(), cfg: config.NewConfig()}
	f.cfg.Surfin.Adapter.Storage["input"] = map[string]interface{}{"type": "local", "base_dir": f.inputDir}
	f.cfg.Surfin.Adapter.Storage["output"] = map[string]interface{}{"type": "local", "base_dir": f.outputDir}
	f.cfg.Datalake.OutputRoot = "lake"
	f.deps = tasklet.Dependencies{
		Config:   f.cfg,
		Resolver: storage.NewConnectionResolver([]storage.StorageProvider{localstorage.NewLocalProvider(f.cfg)}, f.cfg),
		Engine:   dataset.NewEngine(2),
	}
	return f
}

func (f *fixture) writeInput(t *testing.T, name string, lines ...string) {
	t.Helper()
	p := filepath.Join(f.inputDir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

// tableFiles returns the parquet files of table, relative to the table directory.
func (f *fixture) tableFiles(t *testing.T, table string) []string {
	t.Helper()
	root := filepath.Join(f.outputDir, "lake", table, table+".parquet")
	var files []string
	require.NoError(t, filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(p, ".parquet") {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		files = append(files, filepath.ToSlash(rel))
		return nil
	}))
	sort.Strings(files)
	return files
}

func readTable[T any](t *testing.T, f *fixture, table string) []T {
	t.Helper()
	var all []T
	for _, rel := range f.tableFiles(t, table) {
		p := filepath.Join(f.outputDir, "lake", table, table+".parquet", filepath.FromSlash(rel))
		fr, err := local.NewLocalFileReader(p)
		require.NoError(t, err)
		pr, err := reader.NewParquetReader(fr, new(T), 1)
		require.NoError(t, err)
		rows := make([]T, pr.GetNumRows())
		require.NoError(t, pr.Read(&rows))
		pr.ReadStop()
		require.NoError(t, fr.Close())
		all = append(all, rows...)
	}
	return all
}

func newStepExecution(name string) *batchmodel.StepExecution {
	je := batchmodel.NewJobExecution("datalakeJob")
	return batchmodel.NewStepExecution(batchmodel.NewID(), je, name)
}

func runSongStep(t *testing.T, f *fixture) *batchmodel.StepExecution {
	t.Helper()
	tl, err := tasklet.NewSongDataTasklet(f.deps)
	require.NoError(t, err)
	se := newStepExecution("songDataStep")
	ctx := context.Background()
	require.NoError(t, tl.SetExecutionContext(ctx, se.ExecutionContext))
	status, err := tl.Execute(ctx, se)
	require.NoError(t, err)
	assert.Equal(t, batchmodel.ExitStatusCompleted, status)
	se.ExecutionContext, _ = tl.GetExecutionContext(ctx)
	require.NoError(t, tl.Close(ctx))
	return se
}

func runLogStep(t *testing.T, f *fixture) *batchmodel.StepExecution {
	t.Helper()
	tl, err := tasklet.NewLogDataTasklet(f.deps)
	require.NoError(t, err)
	se := newStepExecution("logDataStep")
	ctx := context.Background()
	require.NoError(t, tl.SetExecutionContext(ctx, se.ExecutionContext))
	status, err := tl.Execute(ctx, se)
	require.NoError(t, err)
	assert.Equal(t, batchmodel.ExitStatusCompleted, status)
	se.ExecutionContext, _ = tl.GetExecutionContext(ctx)
	return se
}

func TestEndToEnd_OneRowPerTable(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t, "song_data/A/B/C/TRAAAAW128F429D538.json", songS1)
	f.writeInput(t, "log_data/2018/11/2018-11-15-events.json", eventE1, homeE2)

	songStep := runSongStep(t, f)
	assert.Equal(t, 1, songStep.ReadCount)
	assert.Equal(t, 2, songStep.WriteCount)

	logStep := runLogStep(t, f)
	assert.Equal(t, 3, logStep.ReadCount, "two events plus the re-read song")
	assert.Equal(t, 1, logStep.FilterCount)
	assert.Equal(t, 3, logStep.WriteCount)
	fanout, _ := logStep.ExecutionContext.GetInt(tasklet.ECKeyFanoutEvents)
	assert.Equal(t, 0, fanout)

	songs := readTable[model.Song](t, f, model.TableSongs)
	require.Len(t, songs, 1)
	assert.Equal(t, model.Song{SongID: "S1", Title: "Test Song", ArtistID: "A1", Year: 2000, Duration: 180.0}, songs[0])
	assert.Equal(t, []string{"year=2000/artist_id=A1/part-00000-" + songStep.JobExecutionID + ".snappy.parquet"},
		f.tableFiles(t, model.TableSongs))

	artists := readTable[model.Artist](t, f, model.TableArtists)
	require.Len(t, artists, 1)
	assert.Equal(t, "Test Artist", artists[0].Name)
	assert.Nil(t, artists[0].Latitude)

	users := readTable[model.User](t, f, model.TableUsers)
	require.Len(t, users, 1)
	assert.Equal(t, model.User{UserID: "7", FirstName: "Ann", LastName: "Lee", Gender: "F", Level: "free"}, users[0])

	times := readTable[model.Time](t, f, model.TableTime)
	require.Len(t, times, 1)
	assert.Equal(t, model.Time{StartTime: 1542241826796, Hour: 0, Day: 15, Week: 46, Month: 11, Year: 2018, Weekday: 5}, times[0])
	assert.Equal(t, []string{"year=2018/month=11/part-00000-" + logStep.JobExecutionID + ".snappy.parquet"},
		f.tableFiles(t, model.TableTime))

	songplays := readTable[model.Songplay](t, f, model.TableSongplays)
	require.Len(t, songplays, 1)
	sp := songplays[0]
	require.NotNil(t, sp.SongID)
	require.NotNil(t, sp.ArtistID)
	assert.Equal(t, "S1", *sp.SongID)
	assert.Equal(t, "A1", *sp.ArtistID)
	assert.Equal(t, int64(0), sp.SongplayID)
	assert.Equal(t, int64(1542241826796), sp.StartTime)
	assert.Equal(t, int64(100), sp.SessionID)
	assert.Equal(t, "X", sp.Location)
	assert.Equal(t, "Y", sp.UserAgent)
	assert.Equal(t, int32(2018), sp.Year)
	assert.Equal(t, int32(11), sp.Month)

	_, err := os.Stat(filepath.Join(f.outputDir, "lake", "songplays", "songplays.parquet", "_SUCCESS"))
	assert.NoError(t, err)
}

func TestLogDataTasklet_DefaultGlobReadsYearMonthLayout(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, "log_data/*/*/*.json", f.cfg.Datalake.LogGlob)
	december := strings.Replace(eventE1, `"ts":1542241826796`, `"ts":1543622400000`, 1)
	f.writeInput(t, "song_data/A/B/C/one.json", songS1)
	f.writeInput(t, "log_data/2018/11/2018-11-15-events.json", eventE1)
	f.writeInput(t, "log_data/2018/12/2018-12-01-events.json", december)
	f.writeInput(t, "log_data/2018/stray.json", eventE1)

	se := runLogStep(t, f)
	assert.Equal(t, 3, se.ReadCount, "two events plus the re-read song")

	songplays := readTable[model.Songplay](t, f, model.TableSongplays)
	require.Len(t, songplays, 2)
	assert.Equal(t, []string{
		"year=2018/month=11/part-00000-" + se.JobExecutionID + ".snappy.parquet",
		"year=2018/month=12/part-00001-" + se.JobExecutionID + ".snappy.parquet",
	}, f.tableFiles(t, model.TableSongplays))
}

func TestLogDataTasklet_FanoutIsReported(t *testing.T) {
	f := newFixture(t)
	duplicate := strings.Replace(songS1, `"song_id": "S1"`, `"song_id": "S0"`, 1)
	f.writeInput(t, "song_data/A/B/C/one.json", songS1)
	f.writeInput(t, "song_data/A/B/D/two.json", duplicate)
	f.writeInput(t, "log_data/2018/11/events.json", eventE1)

	se := runLogStep(t, f)
	fanout, ok := se.ExecutionContext.GetInt(tasklet.ECKeyFanoutEvents)
	require.True(t, ok)
	assert.Equal(t, 1, fanout)

	songplays := readTable[model.Songplay](t, f, model.TableSongplays)
	require.Len(t, songplays, 2)
	assert.Equal(t, songplays[0].SongplayID, songplays[1].SongplayID)
}

func TestLogDataTasklet_LowestSongIDPolicy(t *testing.T) {
	f := newFixture(t)
	f.cfg.Datalake.Join.Policy = config.JoinLowestSongID
	duplicate := strings.Replace(songS1, `"song_id": "S1"`, `"song_id": "S0"`, 1)
	f.writeInput(t, "song_data/A/B/C/one.json", songS1, duplicate)
	f.writeInput(t, "log_data/2018/11/events.json", eventE1)

	se := runLogStep(t, f)
	fanout, _ := se.ExecutionContext.GetInt(tasklet.ECKeyFanoutEvents)
	assert.Equal(t, 0, fanout)

	songplays := readTable[model.Songplay](t, f, model.TableSongplays)
	require.Len(t, songplays, 1)
	require.NotNil(t, songplays[0].SongID)
	assert.Equal(t, "S0", *songplays[0].SongID)
}

func TestLogDataTasklet_MalformedLinesAreCountedNotFatal(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t, "song_data/A/B/C/one.json", songS1)
	f.writeInput(t, "log_data/2018/11/events.json", eventE1, `{"page": "NextSong", "ts": `, homeE2)

	se := runLogStep(t, f)
	malformed, _ := se.ExecutionContext.GetInt(tasklet.ECKeyMalformedLines)
	assert.Equal(t, 1, malformed)
	assert.Equal(t, 1, se.SkipReadCount)
	assert.Equal(t, 2, se.FilterCount, "the malformed line and the Home event")

	assert.Len(t, readTable[model.Songplay](t, f, model.TableSongplays), 1)
}

func TestLogDataTasklet_TimezoneShiftsPartitions(t *testing.T) {
	f := newFixture(t)
	f.cfg.Surfin.System.Timezone = "America/Los_Angeles"
	f.writeInput(t, "song_data/A/B/C/one.json", songS1)
	f.writeInput(t, "log_data/2018/11/events.json", eventE1)

	runLogStep(t, f)
	times := readTable[model.Time](t, f, model.TableTime)
	require.Len(t, times, 1)
	assert.Equal(t, int32(16), times[0].Hour)
	assert.Equal(t, int32(14), times[0].Day)
	assert.Equal(t, int32(4), times[0].Weekday)
}

func TestNewTasklets_RejectInvalidSettings(t *testing.T) {
	f := newFixture(t)

	f.cfg.Datalake.Dedup.Policy = "first_seen"
	_, err := tasklet.NewSongDataTasklet(f.deps)
	assert.Error(t, err)

	f.cfg.Datalake.Dedup.Policy = config.DedupFullTuple
	f.cfg.Datalake.Join.Policy = "inner"
	_, err = tasklet.NewLogDataTasklet(f.deps)
	assert.Error(t, err)

	f.cfg.Datalake.Join.Policy = config.JoinFanout
	f.cfg.Surfin.System.Timezone = "Mars/Olympus_Mons"
	_, err = tasklet.NewLogDataTasklet(f.deps)
	assert.Error(t, err)

	_, err = tasklet.NewSongDataTasklet(tasklet.Dependencies{Config: f.cfg})
	assert.Error(t, err)
}

func TestSongDataTasklet_MissingOutputStorageFails(t *testing.T) {
	f := newFixture(t)
	f.cfg.Datalake.OutputRef = "warehouse"
	f.writeInput(t, "song_data/A/B/C/one.json", songS1)

	tl, err := tasklet.NewSongDataTasklet(f.deps)
	require.NoError(t, err)
	status, err := tl.Execute(context.Background(), newStepExecution("songDataStep"))
	require.Error(t, err)
	assert.Equal(t, batchmodel.ExitStatusFailed, status)
}
