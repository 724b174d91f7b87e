package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditservice "alumreg/internal/audit/service"
	auditstore "alumreg/internal/audit/store"
	"alumreg/internal/email"
	"alumreg/internal/erp"
	"alumreg/internal/erp/validator"
	"alumreg/internal/platform/logger"
	"alumreg/internal/registration/service"
	"alumreg/internal/registration/store"
	"alumreg/internal/token"
	"alumreg/pkg/testutil"
)

func newTestRouter(t *testing.T) (chi.Router, *service.Service) {
	t.Helper()

	log := logger.NewDiscard()
	exit := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	val := validator.New(nil,
		validator.WithLogger(log),
		validator.WithMockEmployees([]erp.EmployeeRecord{
			{NationalID: "12345678", StaffID: "E-1001", FullName: "Jane Wanjiku", Department: "Finance", ExitDate: &exit},
		}),
	)
	svc := service.New(
		store.NewInMemoryStore(),
		val,
		auditservice.New(auditstore.NewInMemoryStore()),
		token.NewService(token.NewInMemoryStore(), time.Hour),
		email.NewLogNotifier(log),
		service.WithLogger(log),
	)

	h := New(svc, log)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterAdmin(r)
	return r, svc
}

func submitBody() SubmitRequest {
	return SubmitRequest{
		NationalID:            "12345678",
		FullName:              "Jane Wanjiku",
		Email:                 "jane@example.com",
		CountryCode:           "KE",
		City:                  "Nairobi",
		Qualifications:        []string{"BSc Computer Science"},
		EngagementPreferences: []string{"Mentoring"},
		ConsentGiven:          true,
	}
}

func TestHandleSubmit(t *testing.T) {
	t.Run("valid submission", func(t *testing.T) {
		router, _ := newTestRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", submitBody()))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
		assert.NotEmpty(t, resp.ID)
		assert.Contains(t, resp.RegistrationNumber, "ALM-")
		assert.Equal(t, "Approved", resp.Status)
	})

	t.Run("unknown applicant is accepted but flagged", func(t *testing.T) {
		router, _ := newTestRouter(t)
		body := submitBody()
		body.NationalID = "99999999"
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", body))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
		assert.Equal(t, "Pending", resp.Status)
		assert.True(t, resp.RequiresManualReview)
	})

	t.Run("validation failure returns every violation", func(t *testing.T) {
		router, _ := newTestRouter(t)
		body := submitBody()
		body.Email = "bad"
		body.ConsentGiven = false
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", body))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		fields, ok := (*resp)["fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "consentGiven")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		router, _ := newTestRouter(t)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", submitBody()))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", submitBody()))
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertErrorCode(t, rr, "conflict")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations", nil)
		router, _ := newTestRouter(t)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleCheckDuplicate(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", submitBody()))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	t.Run("taken email", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/check-duplicate?field=email&value=jane@example.com", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[DuplicateResponse](t, rr)
		assert.True(t, resp.Exists)
	})

	t.Run("available email", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/check-duplicate?field=email&value=free@example.com", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[DuplicateResponse](t, rr)
		assert.False(t, resp.Exists)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/check-duplicate?field=nationalId&value=x", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleStatus(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", submitBody()))
	created := testutil.UnmarshalResponse[StatusResponse](t, rr)

	t.Run("by id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/status?id="+created.ID, nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[StatusResponse](t, rr)
		assert.Equal(t, created.RegistrationNumber, resp.RegistrationNumber)
	})

	t.Run("by email", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/status?email=jane@example.com", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("missing params", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/status", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("unknown email", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/status?email=ghost@example.com", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestHandleApproveReject(t *testing.T) {
	router, _ := newTestRouter(t)
	body := submitBody()
	body.NationalID = "99999999" // flagged, stays Pending
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", body))
	created := testutil.UnmarshalResponse[StatusResponse](t, rr)

	t.Run("approve", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/"+created.ID+"/approve", ApproveRequest{Notes: "verified by hand"})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("double approve conflicts", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/"+created.ID+"/approve", ApproveRequest{})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertErrorCode(t, rr, "invalid_state")
	})

	t.Run("reject without reason", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/"+created.ID+"/reject", RejectRequest{})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/not-a-uuid/approve", ApproveRequest{})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleBulk(t *testing.T) {
	router, _ := newTestRouter(t)

	var ids []string
	for _, addr := range []string{"a@example.com", "b@example.com"} {
		body := submitBody()
		body.NationalID = "99999999"
		body.Email = addr
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", body))
		testutil.AssertStatus(t, rr, http.StatusCreated)
		ids = append(ids, testutil.UnmarshalResponse[StatusResponse](t, rr).ID)
	}

	t.Run("bulk approve reports per item", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/bulk/approve", BulkApproveRequest{IDs: ids})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[BulkResponse](t, rr)
		require.Len(t, resp.Results, 2)
		for _, res := range resp.Results {
			assert.True(t, res.OK)
		}
		assert.Equal(t, 2, resp.Succeeded)
		assert.Equal(t, 0, resp.Failed)
	})

	t.Run("empty batch", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registrations/bulk/approve", BulkApproveRequest{})
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestHandleListAndDashboard(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/registrations", submitBody()))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	t.Run("list", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations?status=Approved", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[ListResponse](t, rr)
		assert.Equal(t, 1, resp.Total)
	})

	t.Run("dashboard counts", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/dashboard/counts", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[store.Counts](t, rr)
		assert.Equal(t, 1, resp.Total)
	})
}

func TestHandleVerifyEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("missing token", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/verify-email", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/registrations/verify-email?token=deadbeef", nil)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}
