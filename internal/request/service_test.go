package request_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifedrop/internal/domain"
	"lifedrop/internal/ledger"
	"lifedrop/internal/request"
	"lifedrop/internal/storage/memory"
	id "lifedrop/pkg/domain"
	dErrors "lifedrop/pkg/domain-errors"
	"lifedrop/pkg/requestcontext"
)

type fixture struct {
	requests      *memory.RequestStore
	notifications *memory.NotificationStore
	donors        *memory.DonorStore
	ledger        *ledger.Service
	svc           *request.Service
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		requests:      memory.NewRequestStore(),
		notifications: memory.NewNotificationStore(),
		donors:        memory.NewDonorStore(),
		now:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.ledger = ledger.New(memory.NewLedgerStore())
	f.svc = request.New(f.requests, f.notifications, f.donors, f.ledger)
	return f
}

func (f *fixture) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), f.now)
}

func validIntake() request.Intake {
	return request.Intake{
		RequesterID:   "req-1",
		PatientName:   "Patient",
		ContactNumber: "9000000001",
		BloodGroup:    "A+",
		Units:         2,
		Urgency:       "High",
		Hospital:      "General Hospital",
		Lat:           13.0827,
		Lng:           80.2707,
	}
}

func TestCreate(t *testing.T) {
	t.Run("valid intake opens the chain for the request", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.svc.Create(f.ctx(), validIntake())
		require.NoError(t, err)
		assert.Equal(t, domain.RequestPending, created.Status)
		assert.Equal(t, id.BloodGroupAPos, created.BloodGroup)
		assert.Equal(t, "High", created.Urgency)
		assert.Equal(t, f.now, created.CreatedAt)

		trail, err := f.ledger.ReadRequestTrail(context.Background(), created.ID)
		require.NoError(t, err)
		require.Len(t, trail, 1)
		assert.Equal(t, domain.EventRequestInitialized, trail[0].Event)
		assert.Equal(t, domain.GenesisHash, trail[0].PreviousHash)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(trail[0].Data, &payload))
		assert.Equal(t, "Patient", payload["patient"])
		assert.Equal(t, "A+", payload["blood_group"])
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newFixture(t)

		cases := map[string]func(*request.Intake){
			"unknown blood group": func(i *request.Intake) { i.BloodGroup = "C+" },
			"empty blood group":   func(i *request.Intake) { i.BloodGroup = "" },
			"blank patient name":  func(i *request.Intake) { i.PatientName = "   " },
			"missing contact":     func(i *request.Intake) { i.ContactNumber = "" },
			"zero units":          func(i *request.Intake) { i.Units = 0 },
			"latitude overflow":   func(i *request.Intake) { i.Lat = 91 },
			"longitude overflow":  func(i *request.Intake) { i.Lng = -181 },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				intake := validIntake()
				mutate(&intake)
				_, err := f.svc.Create(f.ctx(), intake)
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			})
		}
	})
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(f.ctx(), validIntake())
	require.NoError(t, err)

	got, err := f.svc.Get(f.ctx(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = f.svc.Get(f.ctx(), id.NewRequestID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	donor := domain.Donor{
		ID: "1001", FullName: "Asha", Phone: "9876543210",
		BloodGroup: id.BloodGroupOPos, IsAvailable: true, HealthScore: 80,
	}
	require.NoError(t, f.donors.Save(ctx, donor))

	open, err := f.svc.Create(f.ctx(), validIntake())
	require.NoError(t, err)
	done, err := f.svc.Create(f.ctx(), validIntake())
	require.NoError(t, err)

	require.NoError(t, f.notifications.CreateIfAbsent(ctx, domain.Notification{
		ID: id.NewNotificationID(), DonorID: donor.ID, RequestID: open.ID,
		Status: domain.NotificationAccepted, CreatedAt: f.now,
	}))
	require.NoError(t, f.notifications.CreateIfAbsent(ctx, domain.Notification{
		ID: id.NewNotificationID(), DonorID: donor.ID, RequestID: done.ID,
		Status: domain.NotificationCompleted, BloodBagID: "BAG-9", CreatedAt: f.now,
	}))

	done.Status = domain.RequestCompleted
	require.NoError(t, f.requests.UpdateIfVersion(ctx, done))

	t.Run("active view resolves the accepted donor", func(t *testing.T) {
		active, err := f.svc.ListActive(f.ctx())
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, open.ID, active[0].Request.ID)
		assert.Equal(t, "Asha", active[0].DonorName)
		assert.Empty(t, active[0].BloodBagID)
	})

	t.Run("completed view carries the bag id", func(t *testing.T) {
		completed, err := f.svc.ListCompleted(f.ctx())
		require.NoError(t, err)
		require.Len(t, completed, 1)
		assert.Equal(t, done.ID, completed[0].Request.ID)
		assert.Equal(t, "Asha", completed[0].DonorName)
		assert.Equal(t, "BAG-9", completed[0].BloodBagID)
	})
}
