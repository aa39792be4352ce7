//go:build integration

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sosecurity/api/internal/platform/auth"
	"github.com/sosecurity/api/internal/platform/db"
	"github.com/sosecurity/api/migrations"
)

// globalPool is the migrated database shared by the suite, set up once in
// TestMain.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, cleanup, err := setupPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupPostgres(ctx context.Context) (*pgxpool.Pool, func(), error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sosecurity",
				"POSTGRES_PASSWORD": "sosecurity",
				"POSTGRES_DB":       "sosecurity",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		terminate()
		return nil, nil, err
	}

	url := fmt.Sprintf("postgres://sosecurity:sosecurity@%s:%s/sosecurity?sslmode=disable", host, port.Port())
	pool, err := db.NewPool(ctx, url, 4, 1)
	if err != nil {
		terminate()
		return nil, nil, err
	}

	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

type client struct {
	t     *testing.T
	e     *echo.Echo
	token string
}

func newClient(t *testing.T) *client {
	t.Helper()
	cfg := testConfig()
	cfg.BodyLimit = "1M"
	revoker := auth.NewMemoryRevocationStore(time.Minute)
	t.Cleanup(revoker.Close)

	e, err := newServer(cfg, zerolog.Nop(), db.WrapPool(globalPool), globalPool, revoker)
	require.NoError(t, err)
	return &client{t: t, e: e}
}

func (c *client) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)

	var env map[string]any
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec.Code, env
}

func data(env map[string]any) map[string]any {
	d, _ := env["data"].(map[string]any)
	return d
}

func id(env map[string]any) int64 {
	return int64(data(env)["id"].(float64))
}

func register(t *testing.T, c *client, email string) int64 {
	t.Helper()
	code, env := c.do(http.MethodPost, "/usuarios",
		fmt.Sprintf(`{"nombre":"Ana","email":%q,"password":"secreto1"}`, email))
	require.Equal(t, http.StatusCreated, code, env)
	c.token = data(env)["token"].(string)
	return id(env)
}

func assertNoLeakedConns(t *testing.T) {
	t.Helper()
	assert.Equal(t, int32(0), globalPool.Stat().AcquiredConns(), "request connections leaked")
}

func TestIntegration_RegisterLoginLogout(t *testing.T) {
	c := newClient(t)
	uid := register(t, c, "ana.login@example.com")

	var stored string
	require.NoError(t, globalPool.QueryRow(context.Background(),
		`SELECT contrasena FROM usuarios WHERE id_usuario = $1`, uid).Scan(&stored))
	assert.NotEqual(t, "secreto1", stored)
	assert.True(t, strings.HasPrefix(stored, "$2"))

	code, env := c.do(http.MethodGet, fmt.Sprintf("/usuarios/%d", uid), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ana.login@example.com", data(env)["email"])
	assert.NotContains(t, data(env), "password")

	anon := &client{t: t, e: c.e}
	code, _ = anon.do(http.MethodPost, "/login", `{"email":"ana.login@example.com","password":"equivocada"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = anon.do(http.MethodPost, "/login", `{"email":"ana.login@example.com","password":"secreto1"}`)
	require.Equal(t, http.StatusOK, code, env)
	anon.token = data(env)["token"].(string)

	code, _ = anon.do(http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = anon.do(http.MethodGet, "/alertas", "")
	assert.Equal(t, http.StatusForbidden, code)

	code, env = anon.do(http.MethodPost, "/usuarios", `{"nombre":"Otra","email":"ana.login@example.com","password":"secreto1"}`)
	assert.Equal(t, http.StatusConflict, code, env)
	code, env = anon.do(http.MethodPost, "/usuarios", `{"nombre":"Otra","email":"Ana.Login@Example.com","password":"secreto1"}`)
	assert.Equal(t, http.StatusConflict, code, "addresses differing only in case are the same account: %v", env)

	code, env = anon.do(http.MethodPost, "/login", `{"email":"ANA.LOGIN@example.com","password":"secreto1"}`)
	assert.Equal(t, http.StatusOK, code, env)

	assertNoLeakedConns(t)
}

func TestIntegration_Alerts(t *testing.T) {
	c := newClient(t)
	uid := register(t, c, "ana.alerts@example.com")

	code, env := c.do(http.MethodPost, "/alertas",
		fmt.Sprintf(`{"latitud_solicitante":4.6097,"longitud_solicitante":-74.0817,"aceptada":false,"fk_id_usuario":%d}`, uid))
	require.Equal(t, http.StatusCreated, code, env)
	alertID := id(env)

	code, env = c.do(http.MethodGet, fmt.Sprintf("/alertas/%d", alertID), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4.6097, data(env)["latitud_solicitante"])
	assert.Nil(t, data(env)["latitud_respuesta"])
	assert.NotEmpty(t, data(env)["creada_en"])

	code, _ = c.do(http.MethodPut, fmt.Sprintf("/alertas/%d", alertID),
		`{"latitud_solicitante":4.6097,"longitud_solicitante":-74.0817,"latitud_respuesta":4.61,"longitud_respuesta":-74.08,"aceptada":true}`)
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodGet, fmt.Sprintf("/usuarios/%d/alertas", uid), "")
	require.Equal(t, http.StatusOK, code)
	list := env["data"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0].(map[string]any)["aceptada"])

	code, _ = c.do(http.MethodPost, "/alertas",
		`{"latitud_solicitante":4.6,"longitud_solicitante":-74.0,"aceptada":false,"fk_id_usuario":999999}`)
	assert.Equal(t, http.StatusBadRequest, code, "unknown owner is a client error")

	code, _ = c.do(http.MethodDelete, fmt.Sprintf("/alertas/%d", alertID), "")
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodDelete, fmt.Sprintf("/alertas/%d", alertID), "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodGet, fmt.Sprintf("/alertas/%d", alertID), "")
	assert.Equal(t, http.StatusNotFound, code)

	assertNoLeakedConns(t)
}

func TestIntegration_MedicalAndContacts(t *testing.T) {
	c := newClient(t)
	uid := register(t, c, "ana.medical@example.com")

	code, env := c.do(http.MethodPost, "/datos_medicos",
		fmt.Sprintf(`{"grupo_sanguineo":"O+","alergias":"ninguna","otros":"","fk_id_usuario":%d}`, uid))
	require.Equal(t, http.StatusBadRequest, code, env)

	code, env = c.do(http.MethodPost, "/datos_medicos",
		fmt.Sprintf(`{"grupo_sanguineo":"O+","alergias":"ninguna","otros":"asma","fk_id_usuario":%d}`, uid))
	require.Equal(t, http.StatusCreated, code, env)

	code, env = c.do(http.MethodPut, fmt.Sprintf("/usuarios/%d/datos_medicos", uid),
		`{"grupo_sanguineo":"A-","alergias":"penicilina","otros":"asma"}`)
	require.Equal(t, http.StatusOK, code, env)
	assert.Equal(t, float64(1), data(env)["updated"])

	code, env = c.do(http.MethodPost, "/datos_usuarios",
		fmt.Sprintf(`{"nombre":"Ana","apellidos":"Pérez","tipo_identificacion":"CC","telefono":"3001234567","fecha_nacimiento":"1990-04-15","sexo":"F","fk_id_usuario":%d}`, uid))
	require.Equal(t, http.StatusCreated, code, env)
	personalID := id(env)

	code, env = c.do(http.MethodGet, fmt.Sprintf("/datos_usuarios/%d", personalID), "")
	require.Equal(t, http.StatusOK, code, env)
	personal := data(env)
	assert.Equal(t, "1990-04-15", personal["fecha_nacimiento"])

	personal["telefono"] = "3009999999"
	delete(personal, "id")
	body, err := json.Marshal(personal)
	require.NoError(t, err)
	code, env = c.do(http.MethodPut, fmt.Sprintf("/datos_usuarios/%d", personalID), string(body))
	require.Equal(t, http.StatusOK, code, "a record read back must be accepted unchanged: %v", env)

	var contactIDs []int64
	for _, name := range []string{"Luis", "Marta"} {
		code, env = c.do(http.MethodPost, "/contactos_emergencia",
			fmt.Sprintf(`{"nombre":%q,"apellidos":"Pérez","parentezco":"hermano","telefono":"3000000000","fk_id_usuario":%d}`, name, uid))
		require.Equal(t, http.StatusCreated, code, env)
		contactIDs = append(contactIDs, id(env))
	}

	batch := fmt.Sprintf(`{"contactos":[
		{"id":%d,"nombre":"Luis","apellidos":"Pérez","parentezco":"padre","telefono":"3001111111"},
		{"id":%d,"nombre":"Marta","apellidos":"Pérez","parentezco":"madre","telefono":"3002222222"},
		{"id":999999,"nombre":"Nadie","apellidos":"X","parentezco":"otro","telefono":"1"}
	]}`, contactIDs[0], contactIDs[1])
	code, env = c.do(http.MethodPut, fmt.Sprintf("/usuarios/%d/contactos_emergencia", uid), batch)
	require.Equal(t, http.StatusOK, code, env)
	assert.Equal(t, float64(2), data(env)["updated"])

	code, env = c.do(http.MethodGet, fmt.Sprintf("/usuarios/%d/contactos_emergencia", uid), "")
	require.Equal(t, http.StatusOK, code)
	contacts := env["data"].([]any)
	require.Len(t, contacts, 2)
	assert.Equal(t, "padre", contacts[0].(map[string]any)["parentezco"])

	code, _ = c.do(http.MethodDelete, fmt.Sprintf("/usuarios/%d", uid), "")
	require.Equal(t, http.StatusOK, code)
	var remaining int
	require.NoError(t, globalPool.QueryRow(context.Background(),
		`SELECT count(*) FROM contactos_emergencia WHERE fk_id_usuario = $1`, uid).Scan(&remaining))
	assert.Zero(t, remaining, "contacts cascade with their user")

	assertNoLeakedConns(t)
}

func TestIntegration_MigrationsIdempotent(t *testing.T) {
	n, err := db.NewMigrator(globalPool, migrations.FS).Up(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	statuses, err := db.NewMigrator(globalPool, migrations.FS).Status(context.Background())
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, s.Name)
	}
}
