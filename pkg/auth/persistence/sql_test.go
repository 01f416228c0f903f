package persistence_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
	"github.com/klwxsrx/go-app-shell/pkg/auth/persistence"
	pkgsqlmock "github.com/klwxsrx/go-app-shell/pkg/sql/mock"
)

func TestSQL_Save_UpsertsEnvelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := pkgsqlmock.NewClient(ctrl)

	db.EXPECT().ExecContext(gomock.Any(), gomock.Any(), "app", gomock.Any()).
		DoAndReturn(func(_ context.Context, query string, args ...any) (sql.Result, error) {
			assert.Contains(t, query, "INSERT INTO auth_session")
			assert.Contains(t, query, "on conflict (session_key)")
			assert.JSONEq(t, `{"version":1,"state":{"token":"t1","user":null}}`, args[1].(string))
			return nil, nil
		})

	err := persistence.NewSQL(db, "app").Save(context.Background(), auth.State{Token: "t1"})
	assert.NoError(t, err)
}

func TestSQL_Load(t *testing.T) {
	tests := []struct {
		name   string
		get    func(ctx context.Context, dest any, query string, args ...any) error
		expect func(t *testing.T, state *auth.State, err error)
	}{
		{
			name: "returns_state",
			get: func(_ context.Context, dest any, _ string, _ ...any) error {
				*dest.(*[]byte) = []byte(`{"version":1,"state":{"token":"t1","refreshToken":"r1","user":null}}`)
				return nil
			},
			expect: func(t *testing.T, state *auth.State, err error) {
				require.NoError(t, err)
				require.NotNil(t, state)
				assert.Equal(t, "t1", state.Token)
				assert.Equal(t, "r1", state.RefreshToken)
			},
		},
		{
			name: "nil_when_no_rows",
			get: func(context.Context, any, string, ...any) error {
				return sql.ErrNoRows
			},
			expect: func(t *testing.T, state *auth.State, err error) {
				assert.NoError(t, err)
				assert.Nil(t, state)
			},
		},
		{
			name: "error_when_query_fails",
			get: func(context.Context, any, string, ...any) error {
				return errors.New("connection reset")
			},
			expect: func(t *testing.T, state *auth.State, err error) {
				assert.Error(t, err)
				assert.Nil(t, state)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			db := pkgsqlmock.NewClient(ctrl)
			db.EXPECT().GetContext(gomock.Any(), gomock.Any(), gomock.Any(), "app").DoAndReturn(tt.get)

			state, err := persistence.NewSQL(db, "app").Load(context.Background())
			tt.expect(t, state, err)
		})
	}
}

func TestSQL_Clear_DeletesRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := pkgsqlmock.NewClient(ctrl)

	db.EXPECT().ExecContext(gomock.Any(), "DELETE FROM auth_session WHERE session_key = $1", "app").Return(nil, nil)

	err := persistence.NewSQL(db, "app").Clear(context.Background())
	assert.NoError(t, err)
}

func TestSQL_Migrate_CreatesTable(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := pkgsqlmock.NewClient(ctrl)

	db.EXPECT().ExecContext(gomock.Any(), gomock.Any()).Return(nil, errors.New("permission denied"))

	err := persistence.NewSQL(db, "app").Migrate(context.Background())
	assert.ErrorContains(t, err, "auth_session")
}
