package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/psds-microservice/delivery-service/internal/database"
	"github.com/psds-microservice/delivery-service/internal/errs"
	"github.com/psds-microservice/delivery-service/internal/kafka"
	"github.com/psds-microservice/delivery-service/internal/logger"
	"github.com/psds-microservice/delivery-service/internal/model"
	"github.com/psds-microservice/delivery-service/internal/photo"
	"github.com/psds-microservice/delivery-service/internal/store"
	"github.com/psds-microservice/delivery-service/internal/validation"
)

type fixture struct {
	svc    *TicketService
	gw     *store.SQLGateway
	fs     afero.Fs
	events *recordingProducer
}

// recordingProducer hands events to the test over a channel.
type recordingProducer struct {
	ch chan string
}

func (p *recordingProducer) ProduceTicketEvent(_ context.Context, event string, payload map[string]interface{}) {
	p.ch <- event + ":" + payload["ticket_id"].(string)
}

func (p *recordingProducer) next(t *testing.T) string {
	t.Helper()
	select {
	case e := <-p.ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return ""
	}
}

func tickingClock() func() time.Time {
	var n atomic.Int64
	n.Store(1700000000000)
	return func() time.Time { return time.UnixMilli(n.Add(1)) }
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "svc.db")), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(sqlDB, "sqlite3"))

	fs := afero.NewMemMapFs()
	photos := photo.NewStore(fs).WithClock(tickingClock())
	gw := store.NewSQLGateway(db)
	events := &recordingProducer{ch: make(chan string, 16)}
	return &fixture{
		svc:    NewTicketService(gw, photos, events, logger.Discard()),
		gw:     gw,
		fs:     fs,
		events: events,
	}
}

func withPhoto(in Input, name, body string) Input {
	in.Photo = &Upload{Name: name, Body: strings.NewReader(body)}
	return in
}

func aliceInput() Input {
	return withPhoto(Input{
		CustomerName: "Alice",
		Email:        "a@example.com",
		Description:  "lost package",
	}, "pic.jpg", "jpeg")
}

func uploadDirs(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, photo.UploadsDir)
	if errors.Is(err, afero.ErrFileNotFound) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestCreate_StoresTicketAndPhoto(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tk, err := f.svc.Create(ctx, aliceInput())
	require.NoError(t, err)

	stored, err := f.gw.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", stored.Email)
	assert.Equal(t, "", stored.Phone)
	assert.Equal(t, "pic.jpg", stored.PhotoName)
	assert.True(t, strings.HasSuffix(stored.PhotoPath, "/pic.jpg"))

	data, err := afero.ReadFile(f.fs, stored.PhotoPath)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	assert.Equal(t, kafka.EventTicketCreated+":"+tk.ID, f.events.next(t))
}

func TestCreate_Rejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, Input{CustomerName: "Bob123", Description: "x"})

	var findings validation.Errors
	require.ErrorAs(t, err, &findings)
	assert.True(t, findings.Has(validation.FieldCustomerName))
	assert.True(t, findings.Has(validation.FieldContact))
	assert.True(t, findings.Has(validation.FieldPhoto))

	items, err := f.gw.ListTickets(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, uploadDirs(t, f.fs))
}

func TestCreate_RejectsBadExtensionWithoutWriting(t *testing.T) {
	f := setup(t)

	in := withPhoto(Input{CustomerName: "Alice", Email: "a@example.com", Description: "x"}, "photo.gif", "gif")
	_, err := f.svc.Create(context.Background(), in)

	var findings validation.Errors
	require.ErrorAs(t, err, &findings)
	assert.Equal(t, []string{validation.MsgPhotoFormat}, findings.Messages())
	assert.Empty(t, uploadDirs(t, f.fs))
}

func TestUpdate_WithoutPhotoKeepsExistingPhoto(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tk, err := f.svc.Create(ctx, aliceInput())
	require.NoError(t, err)
	f.events.next(t)

	updated, err := f.svc.Update(ctx, tk.ID, Input{
		CustomerName: "Alicia",
		Phone:        "5195551234",
		Description:  "found a note",
	})
	require.NoError(t, err)
	assert.Equal(t, tk.PhotoPath, updated.PhotoPath)

	stored, err := f.gw.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", stored.CustomerName)
	assert.Equal(t, "", stored.Email)
	assert.Equal(t, "5195551234", stored.Phone)
	assert.Equal(t, tk.PhotoName, stored.PhotoName)
	assert.Equal(t, tk.PhotoPath, stored.PhotoPath)
	assert.Len(t, uploadDirs(t, f.fs), 1)

	assert.Equal(t, kafka.EventTicketUpdated+":"+tk.ID, f.events.next(t))
}

func TestUpdate_NewPhotoReplacesOldDirectory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tk, err := f.svc.Create(ctx, aliceInput())
	require.NoError(t, err)
	oldDir := filepath.Base(filepath.Dir(tk.PhotoPath))

	in := withPhoto(Input{CustomerName: "Alice", Email: "a@example.com", Description: "x"}, "new.PNG", "png")
	updated, err := f.svc.Update(ctx, tk.ID, in)
	require.NoError(t, err)

	dirs := uploadDirs(t, f.fs)
	require.Len(t, dirs, 1)
	assert.NotEqual(t, oldDir, dirs[0])

	files, err := afero.ReadDir(f.fs, filepath.Join(photo.UploadsDir, dirs[0]))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.PNG", files[0].Name())

	stored, err := f.gw.GetTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "new.PNG", stored.PhotoName)
	assert.Equal(t, updated.PhotoPath, stored.PhotoPath)
}

func TestUpdate_NotFound(t *testing.T) {
	f := setup(t)

	in := withPhoto(Input{CustomerName: "Alice", Email: "a@example.com", Description: "x"}, "new.png", "png")
	_, err := f.svc.Update(context.Background(), "missing", in)

	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
	assert.Empty(t, uploadDirs(t, f.fs))
}

func TestUpdate_Rejected(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Update(context.Background(), "any", Input{CustomerName: "Alice", Description: "x"})

	var findings validation.Errors
	require.ErrorAs(t, err, &findings)
	assert.Equal(t, []string{validation.MsgContactRequired}, findings.Messages())
}

func TestDelete_RemovesPhotoDirectory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tk, err := f.svc.Create(ctx, aliceInput())
	require.NoError(t, err)
	f.events.next(t)

	require.NoError(t, f.svc.Delete(ctx, tk.ID))

	_, err = f.gw.GetTicket(ctx, tk.ID)
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
	assert.Empty(t, uploadDirs(t, f.fs))
	assert.Equal(t, kafka.EventTicketDeleted+":"+tk.ID, f.events.next(t))
}

func TestDelete_WithoutPhotoTouchesNoFiles(t *testing.T) {
	gw := new(mockGateway)
	photos := new(mockPhotos)
	svc := NewTicketService(gw, photos, nil, logger.Discard())
	ctx := context.Background()

	gw.On("GetTicket", ctx, "t1").Return(&model.Ticket{ID: "t1", CustomerName: "Bob"}, nil)
	gw.On("DeleteTicket", ctx, "t1").Return(nil)

	require.NoError(t, svc.Delete(ctx, "t1"))
	photos.AssertNotCalled(t, "Remove", mock.Anything)
	gw.AssertExpectations(t)
}

func TestDelete_UnknownIDSucceeds(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.svc.Delete(context.Background(), "never-existed"))
}

func TestCreate_PersistFailureRemovesPhoto(t *testing.T) {
	gw := new(mockGateway)
	fs := afero.NewMemMapFs()
	svc := NewTicketService(gw, photo.NewStore(fs), nil, logger.Discard())

	gw.On("CreateTicket", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.Create(context.Background(), aliceInput())
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, uploadDirs(t, fs))
}

func TestCreate_PhotoFailureFailsSubmission(t *testing.T) {
	gw := new(mockGateway)
	photos := new(mockPhotos)
	svc := NewTicketService(gw, photos, nil, logger.Discard())

	photos.On("Save", "pic.jpg", mock.Anything).Return(photo.Photo{}, errors.New("disk full"))

	_, err := svc.Create(context.Background(), aliceInput())
	assert.ErrorContains(t, err, "disk full")
	gw.AssertNotCalled(t, "CreateTicket", mock.Anything, mock.Anything)
}

func TestUpdate_OldPhotoCleanupFailureKeepsUpdate(t *testing.T) {
	gw := new(mockGateway)
	photos := new(mockPhotos)
	svc := NewTicketService(gw, photos, nil, logger.Discard())
	ctx := context.Background()

	oldPath := photo.UploadsDir + "/1700000000001/pic.jpg"
	newPath := photo.UploadsDir + "/1700000000002/new.jpg"
	gw.On("GetTicket", ctx, "t1").Return(&model.Ticket{
		ID: "t1", CustomerName: "Alice", Email: "a@example.com",
		Description: "lost package", PhotoName: "pic.jpg", PhotoPath: oldPath,
	}, nil)
	photos.On("Save", "new.jpg", mock.Anything).Return(photo.Photo{Name: "new.jpg", Path: newPath}, nil)
	gw.On("UpdateTicket", ctx, "t1", mock.Anything).Return(nil)
	photos.On("Remove", oldPath).Return(errors.New("permission denied"))

	in := withPhoto(Input{
		CustomerName: "Alice",
		Email:        "a@example.com",
		Description:  "still lost",
	}, "new.jpg", "jpeg")
	updated, err := svc.Update(ctx, "t1", in)
	require.NoError(t, err)
	assert.Equal(t, newPath, updated.PhotoPath)
	assert.Equal(t, "still lost", updated.Description)
	gw.AssertExpectations(t)
	photos.AssertExpectations(t)
}

func TestGet_NotFound(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrTicketNotFound)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateTicket(ctx context.Context, t *model.Ticket) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockGateway) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Ticket)
	return items, args.Error(1)
}

func (m *mockGateway) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Ticket)
	return t, args.Error(1)
}

func (m *mockGateway) UpdateTicket(ctx context.Context, id string, u store.TicketUpdate) error {
	return m.Called(ctx, id, u).Error(0)
}

func (m *mockGateway) DeleteTicket(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGateway) Authenticate(ctx context.Context, username, password string) (bool, error) {
	args := m.Called(ctx, username, password)
	return args.Bool(0), args.Error(1)
}

func (m *mockGateway) SaveAdmin(ctx context.Context, cred model.AdminCredential) error {
	return m.Called(ctx, cred).Error(0)
}

func (m *mockGateway) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockPhotos struct {
	mock.Mock
}

func (m *mockPhotos) Save(name string, r io.Reader) (photo.Photo, error) {
	args := m.Called(name, r)
	return args.Get(0).(photo.Photo), args.Error(1)
}

func (m *mockPhotos) Remove(storedPath string) error {
	return m.Called(storedPath).Error(0)
}
