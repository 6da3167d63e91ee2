// Package predicttest provides a testify mock of predict.Client.
package predicttest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"leukemia-care-portal/internal/predict"
)

type MockClient struct {
	mock.Mock
}

var _ predict.Client = (*MockClient)(nil)

func (m *MockClient) PredictEthical(ctx context.Context, req predict.EthicalRequest) (*predict.EthicalResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*predict.EthicalResponse), args.Error(1)
}

func (m *MockClient) PredictEffectiveness(ctx context.Context, req predict.EffectivenessRequest) (*predict.EffectivenessResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*predict.EffectivenessResponse), args.Error(1)
}

func (m *MockClient) PredictTreatment(ctx context.Context, req predict.DQNRequest) (*predict.DQNResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*predict.DQNResponse), args.Error(1)
}

func (m *MockClient) PredictImage(ctx context.Context, image []byte, fileName string) (*predict.ImageResponse, error) {
	args := m.Called(ctx, image, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*predict.ImageResponse), args.Error(1)
}

func (m *MockClient) SubmitForm(ctx context.Context, payload map[string]interface{}) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockClient) Ask(ctx context.Context, query string) (*predict.AskResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*predict.AskResponse), args.Error(1)
}

func (m *MockClient) GetAppointments(ctx context.Context) ([]predict.AppointmentRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]predict.AppointmentRecord), args.Error(1)
}

func (m *MockClient) SubmitAppointment(ctx context.Context, a predict.AppointmentSubmission) (*predict.SubmitAppointmentResponse, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*predict.SubmitAppointmentResponse), args.Error(1)
}

// SubmittedForms returns every payload passed to SubmitForm, in call order.
func (m *MockClient) SubmittedForms() []map[string]interface{} {
	var out []map[string]interface{}
	for _, c := range m.Calls {
		if c.Method == "SubmitForm" {
			out = append(out, c.Arguments.Get(1).(map[string]interface{}))
		}
	}
	return out
}
