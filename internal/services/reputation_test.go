package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-system/internal/dto"
	"marketplace-system/internal/entities"
	apperrors "marketplace-system/pkg/errors"
)

func TestReputationDelta(t *testing.T) {
	cases := []struct {
		name         string
		projectValue int64
		rating       int
		want         int64
	}{
		{"ниже порога очки не начисляются", 5_000_000, 5, 0},
		{"на пороге база поднимается до единицы", 10_000_000, 4, 1},
		{"порог с высшей оценкой", 10_000_000, 5, 2},
		{"сто миллионов, пять звезд", 100_000_000, 5, 5},
		{"сто миллионов, четыре звезды", 100_000_000, 4, 3},
		{"три звезды всегда ноль", 100_000_000, 3, 0},
		{"сто миллионов, одна звезда", 100_000_000, 1, -6},
		{"две звезды - штраф в минус базу", 100_000_000, 2, -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ReputationDelta(tc.projectValue, tc.rating))
		})
	}
}

func newReputationFixture(t *testing.T) (ReputationServiceInterface, *fakeUserRepo, *fakeServiceRequestRepo, *fakeContractorAppRepo, *fakeReviewRepo) {
	t.Helper()
	userRepo := newFakeUserRepo(&entities.User{ID: 2, Roles: entities.RoleContractor})
	serviceRepo := newFakeServiceRequestRepo()
	contractorRepo := newFakeContractorAppRepo()
	reviewRepo := newFakeReviewRepo()
	svc := NewReputationService(reviewRepo, userRepo, serviceRepo, newFakeMaterialRequestRepo(),
		contractorRepo, newFakeDistributorAppRepo(), newFakeCache(), fakeTxManager{}, testLogger())
	return svc, userRepo, serviceRepo, contractorRepo, reviewRepo
}

func seedSettledRequest(t *testing.T, serviceRepo *fakeServiceRequestRepo, contractorRepo *fakeContractorAppRepo, customerID, partnerID uint64, estimate int64) uint64 {
	t.Helper()
	ctx := context.Background()
	requestID, err := serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: customerID, Description: "ремонт", Status: entities.RequestStatusPending,
	})
	require.NoError(t, err)
	appID, err := contractorRepo.Create(ctx, &entities.ContractorApplication{
		PartnerID: partnerID, RequestID: requestID, EstimatePrice: estimate,
		Status: entities.ApplicationStatusApproved,
	})
	require.NoError(t, err)
	require.NoError(t, serviceRepo.SetSelectedApplication(ctx, nil, requestID, appID))
	return requestID
}

func TestApplyReview_UpdatesRunningAggregates(t *testing.T) {
	svc, userRepo, serviceRepo, contractorRepo, _ := newReputationFixture(t)
	ctx := context.Background()
	requestID := seedSettledRequest(t, serviceRepo, contractorRepo, 1, 2, 100_000_000)

	review, err := svc.ApplyReview(ctx, 1, dto.CreateReviewDTO{
		RequestID:   requestID,
		RequestKind: string(entities.RequestKindService),
		Rating:      5,
		Comment:     "отлично",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), review.PartnerID)

	partner, err := userRepo.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, partner.RatingCount)
	assert.InDelta(t, 5.0, partner.AverageRating, 1e-9)
	assert.Equal(t, int64(5), partner.ReputationPoints)
}

func TestApplyReview_RunningMeanOverSeveralReviews(t *testing.T) {
	svc, userRepo, serviceRepo, contractorRepo, _ := newReputationFixture(t)
	ctx := context.Background()

	first := seedSettledRequest(t, serviceRepo, contractorRepo, 1, 2, 100_000_000)
	second := seedSettledRequest(t, serviceRepo, contractorRepo, 1, 2, 100_000_000)

	_, err := svc.ApplyReview(ctx, 1, dto.CreateReviewDTO{
		RequestID: first, RequestKind: string(entities.RequestKindService), Rating: 5,
	})
	require.NoError(t, err)
	_, err = svc.ApplyReview(ctx, 1, dto.CreateReviewDTO{
		RequestID: second, RequestKind: string(entities.RequestKindService), Rating: 2,
	})
	require.NoError(t, err)

	partner, err := userRepo.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, partner.RatingCount)
	assert.InDelta(t, 3.5, partner.AverageRating, 1e-9)
	// +5 за пять звезд, -3 за две.
	assert.Equal(t, int64(2), partner.ReputationPoints)
}

func TestApplyReview_DuplicatePerRequestRejected(t *testing.T) {
	svc, _, serviceRepo, contractorRepo, _ := newReputationFixture(t)
	ctx := context.Background()
	requestID := seedSettledRequest(t, serviceRepo, contractorRepo, 1, 2, 100_000_000)

	_, err := svc.ApplyReview(ctx, 1, dto.CreateReviewDTO{
		RequestID: requestID, RequestKind: string(entities.RequestKindService), Rating: 5,
	})
	require.NoError(t, err)

	_, err = svc.ApplyReview(ctx, 1, dto.CreateReviewDTO{
		RequestID: requestID, RequestKind: string(entities.RequestKindService), Rating: 4,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestApplyReview_RequiresApprovedSelection(t *testing.T) {
	svc, _, serviceRepo, contractorRepo, _ := newReputationFixture(t)
	ctx := context.Background()

	// Заявка без выбранного отклика.
	requestID, err := serviceRepo.Create(ctx, &entities.ServiceRequest{
		CustomerID: 1, Status: entities.RequestStatusOpening,
	})
	require.NoError(t, err)

	_, err = svc.ApplyReview(ctx, 1, dto.CreateReviewDTO{
		RequestID: requestID, RequestKind: string(entities.RequestKindService), Rating: 5,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	// Выбранный, но еще не оплаченный отклик.
	appID, err := contractorRepo.Create(ctx, &entities.ContractorApplication{
		PartnerID: 2, RequestID: requestID, EstimatePrice: 50_000_000,
		Status: entities.ApplicationStatusPendingCommission,
	})
	require.NoError(t, err)
	require.NoError(t, serviceRepo.SetSelectedApplication(ctx, nil, requestID, appID))

	_, err = svc.ApplyReview(ctx, 1, dto.CreateReviewDTO{
		RequestID: requestID, RequestKind: string(entities.RequestKindService), Rating: 5,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestApplyReview_ForeignRequestForbidden(t *testing.T) {
	svc, _, serviceRepo, contractorRepo, _ := newReputationFixture(t)
	requestID := seedSettledRequest(t, serviceRepo, contractorRepo, 1, 2, 100_000_000)

	_, err := svc.ApplyReview(context.Background(), 777, dto.CreateReviewDTO{
		RequestID: requestID, RequestKind: string(entities.RequestKindService), Rating: 5,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
