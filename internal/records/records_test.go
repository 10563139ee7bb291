package records

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westgate-schools/admin-console/internal/apiclient"
	"github.com/westgate-schools/admin-console/internal/backendtest"
	"github.com/westgate-schools/admin-console/internal/models"
	"github.com/westgate-schools/admin-console/internal/tokenstore"
	appErrors "github.com/westgate-schools/admin-console/pkg/errors"
)

func authedClient(t *testing.T, backend *backendtest.Server) *apiclient.Client {
	t.Helper()
	tokens := tokenstore.NewMemory()
	require.NoError(t, tokens.Set(context.Background(), backend.IssueToken()))
	return apiclient.New(apiclient.Config{BaseURL: backend.BaseURL()}, tokens)
}

func TestStoreKeepsOrderAndNotifies(t *testing.T) {
	s := NewStore(func(m models.Message) string { return m.ID })
	notified := 0
	s.Subscribe(func() { notified++ })

	s.Replace([]models.Message{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	assert.True(t, s.Update("b", func(m *models.Message) { m.Subject = "changed" }))
	assert.False(t, s.Update("zz", func(m *models.Message) {}))
	assert.True(t, s.Delete("a"))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "changed", all[0].Subject)
	assert.Equal(t, 3, notified)
}

func TestFilterIsConjunction(t *testing.T) {
	statuses := []models.ApplicationStatus{models.ApplicationPending, models.ApplicationReview, models.ApplicationApproved, models.ApplicationRejected}
	programs := []string{"early-years", "primary", "junior-secondary", "senior-secondary"}
	names := []string{"Amina", "Brian", "Chebet", "Daudi", "Wanjiru"}
	rng := rand.New(rand.NewSource(7))

	ctrl := NewApplications(nil, nil)
	apps := make([]models.Application, 0, 60)
	for i := 0; i < 60; i++ {
		first := names[rng.Intn(len(names))]
		apps = append(apps, models.Application{
			ID:                strings.Repeat("x", i+1),
			ApplicationNumber: "WGS2026" + string(rune('A'+i%26)),
			Student:           models.StudentInfo{FirstName: first, LastName: names[rng.Intn(len(names))]},
			Parent:            models.ParentInfo{Email: strings.ToLower(first) + "@mail.test"},
			Program:           programs[rng.Intn(len(programs))],
			Status:            statuses[rng.Intn(len(statuses))],
		})
	}
	ctrl.store.Replace(apps)

	filters := []Filter{
		{},
		{Status: "all", Category: "all"},
		{Status: "pending"},
		{Category: "primary", Search: "AMINA"},
		{Status: "approved", Category: "senior-secondary", Search: "mail.test"},
		{Status: "rejected", Search: "wgs2026c"},
		{Search: "nobody"},
	}
	for _, f := range filters {
		want := make([]models.Application, 0)
		for _, a := range apps {
			statusOK := f.Status == "" || f.Status == "all" || string(a.Status) == f.Status
			programOK := f.Category == "" || f.Category == "all" || a.Program == f.Category
			term := strings.ToLower(f.Search)
			searchOK := term == "" ||
				strings.Contains(strings.ToLower(a.Student.FirstName+" "+a.Student.LastName), term) ||
				strings.Contains(strings.ToLower(a.Parent.Email), term) ||
				strings.Contains(strings.ToLower(a.ApplicationNumber), term)
			if statusOK && programOK && searchOK {
				want = append(want, a)
			}
		}
		assert.Equal(t, want, ctrl.Filtered(f), "filter %+v", f)
	}
}

func TestRejectPendingApplication(t *testing.T) {
	backend := backendtest.New(t)
	app := backend.SeedApplication(models.Application{
		Student: models.StudentInfo{FirstName: "Amina", LastName: "Otieno"},
		Program: "primary",
		Grade:   "grade-1",
	})
	ctrl := NewApplications(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))
	require.Len(t, ctrl.Actions(app.ID), 3)
	_, err := ctrl.Open(app.ID)
	require.NoError(t, err)

	updated, err := ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationRejected, "")
	require.NoError(t, err)

	calls := backend.Calls(http.MethodPut, "/applications/"+app.ID+"/status")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"status":"rejected"}`, calls[0].Body)
	assert.Equal(t, "Rejected", updated.Status.Label())
	assert.Empty(t, ctrl.Actions(app.ID))

	detail, open := ctrl.Detail()
	require.True(t, open)
	assert.Equal(t, models.ApplicationRejected, detail.Status)
}

func TestUpdateStatusFailureLeavesStateUnchanged(t *testing.T) {
	backend := backendtest.New(t)
	app := backend.SeedApplication(models.Application{Program: "primary"})
	ctrl := NewApplications(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))
	backend.Fail(http.MethodPut, "/applications/"+app.ID+"/status", http.StatusInternalServerError, "Database unavailable", 1)

	_, err := ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationApproved, "")

	var mutErr *MutationError
	require.True(t, errors.As(err, &mutErr))
	assert.Equal(t, "Database unavailable", appErrors.FromError(err).Message)
	stored, _ := ctrl.Store().Get(app.ID)
	assert.Equal(t, models.ApplicationPending, stored.Status)
	_, listErr := ctrl.Status()
	assert.Nil(t, listErr)
}

func TestFetchFailureSetsRetryableListError(t *testing.T) {
	backend := backendtest.New(t)
	backend.SeedApplication(models.Application{Program: "primary"})
	ctrl := NewApplications(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))
	backend.Fail(http.MethodGet, "/applications", http.StatusBadGateway, "", 1)

	err := ctrl.FetchAll(context.Background())
	require.Error(t, err)

	_, listErr := ctrl.Status()
	require.NotNil(t, listErr)
	assert.True(t, listErr.Retryable)
	assert.Equal(t, 1, ctrl.Store().Len())

	require.NoError(t, ctrl.FetchAll(context.Background()))
	_, listErr = ctrl.Status()
	assert.Nil(t, listErr)
}

func TestStaleFetchIsIgnored(t *testing.T) {
	backend := backendtest.New(t)
	backend.SeedApplication(models.Application{ApplicationNumber: "OLD"})

	release := make(chan struct{})
	var mu sync.Mutex
	listCalls := 0
	backend.BeforeHandle = func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || c.Request.URL.Path != "/api/applications" {
			return
		}
		mu.Lock()
		listCalls++
		first := listCalls == 1
		mu.Unlock()
		if first {
			<-release
		}
	}
	ctrl := NewApplications(authedClient(t, backend), nil)

	done := make(chan error, 1)
	go func() { done <- ctrl.FetchAll(context.Background()) }()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return listCalls == 1
	}, timeout, tick)

	backend.SeedApplication(models.Application{ApplicationNumber: "NEW"})
	require.NoError(t, ctrl.FetchAll(context.Background()))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 2, ctrl.Store().Len())
}

func TestConcurrentMutationsLastResponseWins(t *testing.T) {
	backend := backendtest.New(t)
	app := backend.SeedApplication(models.Application{Program: "primary"})

	release := make(chan struct{})
	var mu sync.Mutex
	puts := 0
	backend.BeforeHandle = func(c *gin.Context) {
		if c.Request.Method != http.MethodPut {
			return
		}
		mu.Lock()
		puts++
		first := puts == 1
		mu.Unlock()
		if first {
			<-release
		}
	}
	ctrl := NewApplications(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationApproved, "")
		done <- err
	}()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return puts == 1
	}, timeout, tick)

	_, err := ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationRejected, "")
	require.NoError(t, err)
	stored, _ := ctrl.Store().Get(app.ID)
	assert.Equal(t, models.ApplicationRejected, stored.Status)

	close(release)
	require.NoError(t, <-done)
	stored, _ = ctrl.Store().Get(app.ID)
	assert.Equal(t, models.ApplicationApproved, stored.Status)
}

func TestOpenAndMarkReadUpdatesOnce(t *testing.T) {
	backend := backendtest.New(t)
	msg := backend.SeedMessage(models.Message{FirstName: "Grace", LastName: "Mwangi", Subject: "Transport"})
	ctrl := NewMessages(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))

	opened, err := ctrl.OpenAndMarkRead(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageRead, opened.Status)

	calls := backend.Calls(http.MethodPut, "/messages/"+msg.ID+"/status")
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"status":"read"}`, calls[0].Body)

	listed, _ := ctrl.Store().Get(msg.ID)
	assert.Equal(t, models.MessageRead, listed.Status)
	detail, ok := ctrl.Detail()
	require.True(t, ok)
	assert.Equal(t, models.MessageRead, detail.Status)

	_, err = ctrl.OpenAndMarkRead(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Len(t, backend.Calls(http.MethodPut, "/messages/"+msg.ID+"/status"), 1)
}

func TestMarkReadFailureKeepsDetailOpen(t *testing.T) {
	backend := backendtest.New(t)
	msg := backend.SeedMessage(models.Message{Subject: "Fees"})
	ctrl := NewMessages(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))
	backend.Fail(http.MethodPut, "/messages/"+msg.ID+"/status", http.StatusInternalServerError, "", 1)

	_, err := ctrl.OpenAndMarkRead(context.Background(), msg.ID)
	require.Error(t, err)

	detail, ok := ctrl.Detail()
	require.True(t, ok)
	assert.Equal(t, models.MessageUnread, detail.Status)
}

func TestRespondRequiresText(t *testing.T) {
	backend := backendtest.New(t)
	msg := backend.SeedMessage(models.Message{Subject: "Fees"})
	ctrl := NewMessages(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))

	_, err := ctrl.Respond(context.Background(), msg.ID, "   ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, backend.Calls(http.MethodPut, "/messages/"+msg.ID+"/respond"))

	updated, err := ctrl.Respond(context.Background(), msg.ID, " Fees are due in January. ")
	require.NoError(t, err)
	assert.Equal(t, models.MessageReplied, updated.Status)
	assert.Equal(t, "Fees are due in January.", updated.Response)
	assert.NotNil(t, updated.RespondedAt)
}

func TestUpdatePriorityAndFilterByCategory(t *testing.T) {
	backend := backendtest.New(t)
	a := backend.SeedMessage(models.Message{FirstName: "Grace", Subject: "Bus route", Category: "transport"})
	backend.SeedMessage(models.Message{FirstName: "Peter", Subject: "Fees", Category: "admissions"})
	ctrl := NewMessages(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))

	high := models.PriorityHigh
	updated, err := ctrl.Update(context.Background(), a.ID, models.MessagePatch{Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)

	got := ctrl.Filtered(Filter{Category: "transport", Search: "bus"})
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestDetailClosedBeforeResponseStaysClosed(t *testing.T) {
	backend := backendtest.New(t)
	app := backend.SeedApplication(models.Application{Program: "primary"})
	release := make(chan struct{})
	backend.BeforeHandle = func(c *gin.Context) {
		if c.Request.Method == http.MethodPut {
			<-release
		}
	}
	ctrl := NewApplications(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))
	_, err := ctrl.Open(app.ID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationApproved, "")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return len(backend.Calls(http.MethodPut, "/applications/"+app.ID+"/status")) == 1
	}, timeout, tick)
	ctrl.Close()
	close(release)
	require.NoError(t, <-done)

	_, open := ctrl.Detail()
	assert.False(t, open)
	stored, _ := ctrl.Store().Get(app.ID)
	assert.Equal(t, models.ApplicationApproved, stored.Status)
}

func TestDecidedApplicationRefusesFurtherDecisions(t *testing.T) {
	backend := backendtest.New(t)
	app := backend.SeedApplication(models.Application{Program: "primary"})
	ctrl := NewApplications(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))

	_, err := ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationRejected, "")
	require.NoError(t, err)

	_, err = ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationApproved, "")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Len(t, backend.Calls(http.MethodPut, "/applications/"+app.ID+"/status"), 1)

	stored, _ := ctrl.Store().Get(app.ID)
	assert.Equal(t, models.ApplicationRejected, stored.Status)
}

func TestApplicationDecisionNeedsLoadedPendingRecord(t *testing.T) {
	backend := backendtest.New(t)
	app := backend.SeedApplication(models.Application{Program: "primary"})
	ctrl := NewApplications(authedClient(t, backend), nil)

	_, err := ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationApproved, "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, ctrl.FetchAll(context.Background()))
	_, err = ctrl.UpdateStatus(context.Background(), app.ID, models.ApplicationPending, "")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	assert.Empty(t, backend.Calls(http.MethodPut, "/applications/"+app.ID+"/status"))
}

func TestRepliedMessageCannotBeReopened(t *testing.T) {
	backend := backendtest.New(t)
	msg := backend.SeedMessage(models.Message{Subject: "Fees"})
	ctrl := NewMessages(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))

	_, err := ctrl.Respond(context.Background(), msg.ID, "Fees are due in January.")
	require.NoError(t, err)

	_, err = ctrl.UpdateStatus(context.Background(), msg.ID, models.MessageUnread)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	unread := models.MessageUnread
	_, err = ctrl.Update(context.Background(), msg.ID, models.MessagePatch{Status: &unread})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	assert.Empty(t, backend.Calls(http.MethodPut, "/messages/"+msg.ID+"/status"))
	assert.Empty(t, backend.Calls(http.MethodPut, "/messages/"+msg.ID))

	stored, _ := ctrl.Store().Get(msg.ID)
	assert.Equal(t, models.MessageReplied, stored.Status)
	assert.Equal(t, "Fees are due in January.", stored.Response)
}

func TestRepliedStatusOnlyThroughRespond(t *testing.T) {
	backend := backendtest.New(t)
	msg := backend.SeedMessage(models.Message{Subject: "Transport"})
	ctrl := NewMessages(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))

	_, err := ctrl.UpdateStatus(context.Background(), msg.ID, models.MessageReplied)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	replied := models.MessageReplied
	_, err = ctrl.Update(context.Background(), msg.ID, models.MessagePatch{Status: &replied})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	assert.Empty(t, backend.Calls(http.MethodPut, "/messages/"+msg.ID+"/status"))
	assert.Empty(t, backend.Calls(http.MethodPut, "/messages/"+msg.ID))
}

func TestStatusUpdateSurvivesCancelledRequest(t *testing.T) {
	backend := backendtest.New(t)
	app := backend.SeedApplication(models.Application{Program: "primary"})
	ctrl := NewApplications(authedClient(t, backend), nil)
	require.NoError(t, ctrl.FetchAll(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	updated, err := ctrl.UpdateStatus(ctx, app.ID, models.ApplicationApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, updated.Status)
	assert.Len(t, backend.Calls(http.MethodPut, "/applications/"+app.ID+"/status"), 1)
}
