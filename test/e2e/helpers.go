//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/skumatch/internal/api/handlers"
	"github.com/cloo-solutions/skumatch/internal/domain"
	"github.com/cloo-solutions/skumatch/internal/remote"
	"github.com/cloo-solutions/skumatch/internal/repository"
	"github.com/cloo-solutions/skumatch/internal/server"
	"github.com/cloo-solutions/skumatch/internal/service"
	"github.com/cloo-solutions/skumatch/internal/storage"
	"github.com/cloo-solutions/skumatch/internal/testutil"
	"github.com/cloo-solutions/skumatch/internal/web"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T           *testing.T
	Ctx         context.Context
	PostgresC   *testutil.PostgresContainer
	RustFSC     *testutil.RustFSContainer
	Pool        *pgxpool.Pool
	S3Client    *storage.S3Client
	BackendURL  string
	UIURL       string
	MappingFile string
	BinaryDir   string
	Browser     *http.Client

	closers []func()
}

// plainTextExtractor treats uploaded bytes as the PDF's text so that tests
// do not depend on pdftotext being installed.
type plainTextExtractor struct{}

func (plainTextExtractor) ExtractText(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	return string(data), err
}

// SetupE2EEnv starts Postgres and RustFS, then the collaborator services and
// the browser UI against them.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "skumatch-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	env := &E2ETestEnv{
		T:           t,
		Ctx:         ctx,
		PostgresC:   pgC,
		RustFSC:     s3C,
		Pool:        pool,
		S3Client:    s3Client,
		MappingFile: filepath.Join(t.TempDir(), "mappings.json"),
		Browser:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}

	env.BackendURL = env.startServer(env.backendRouter())
	env.UIURL = env.startServer(server.NewUIRouter(server.UIRouterConfig{
		Handler: web.NewHandler(web.NewStore(remote.NewClient(remote.Config{
			ProcessURL: env.BackendURL,
			SearchURL:  env.BackendURL,
		}), time.Hour)),
	}))

	return env
}

func (e *E2ETestEnv) backendRouter() http.Handler {
	productRepo := repository.NewProductRepository(e.Pool)

	extractionSvc := service.NewExtractionService(plainTextExtractor{}, e.S3Client)
	searchSvc := service.NewSearchService(productRepo, nil, service.SearchConfig{})
	mappingSvc := service.NewMappingService(repository.NewMappingRepository(e.Pool), e.S3Client, e.MappingFile)
	catalogSvc := service.NewCatalogService(productRepo, repository.NewTxRunner(e.Pool))

	return server.NewBackendRouter(server.BackendRouterConfig{
		Handler: handlers.NewCollaboratorHandler(extractionSvc, searchSvc, mappingSvc, catalogSvc),
	})
}

// SeedCatalog imports products through the catalog service.
func (e *E2ETestEnv) SeedCatalog(products ...*domain.Product) {
	catalogSvc := service.NewCatalogService(repository.NewProductRepository(e.Pool), repository.NewTxRunner(e.Pool))
	if _, err := catalogSvc.Import(e.Ctx, products); err != nil {
		e.T.Fatalf("failed to seed catalog: %v", err)
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the skumatch and skumatchd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "skumatch-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"skumatch", "skumatchd"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunSkumatch runs the skumatch CLI against the test collaborators.
func (e *E2ETestEnv) RunSkumatch(workDir, input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "skumatch"), args...)
	cmd.Dir = workDir
	cmd.Stdin = bytes.NewReader([]byte(input))
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SKUMATCH_PROCESS_URL=%s", e.BackendURL),
		fmt.Sprintf("SKUMATCH_SEARCH_URL=%s", e.BackendURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// RunSkumatchd runs the skumatchd CLI against the test database.
func (e *E2ETestEnv) RunSkumatchd(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "skumatchd"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SKUMATCH_DATABASE_URL=%s", e.PostgresC.ConnectionString()),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// UploadInvoice posts a file to the UI as the browser's file input would.
func (e *E2ETestEnv) UploadInvoice(filename string, content []byte) *http.Response {
	var body bytes.Buffer
	contentType := writeMultipart(&body, filename, content)

	resp, err := e.Browser.Post(e.UIURL+"/upload", contentType, &body)
	if err != nil {
		e.T.Fatalf("upload failed: %v", err)
	}
	return resp
}

// PostForm submits a UI form and returns the page it redirects to.
func (e *E2ETestEnv) PostForm(path string, values map[string]string) string {
	form := make(map[string][]string, len(values))
	for k, v := range values {
		form[k] = []string{v}
	}
	resp, err := e.Browser.PostForm(e.UIURL+path, form)
	if err != nil {
		e.T.Fatalf("post %s failed: %v", path, err)
	}
	return readBody(e.T, resp)
}

// Page fetches the UI page.
func (e *E2ETestEnv) Page() string {
	resp, err := e.Browser.Get(e.UIURL + "/")
	if err != nil {
		e.T.Fatalf("get page failed: %v", err)
	}
	return readBody(e.T, resp)
}

func (e *E2ETestEnv) startServer(handler http.Handler) string {
	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	url := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, url, 10*time.Second)

	e.closers = append(e.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return url
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server at %s did not become ready", url)
}

func getFreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

func writeMultipart(body *bytes.Buffer, filename string, content []byte) string {
	mw := multipart.NewWriter(body)
	part, _ := mw.CreateFormFile("file", filename)
	part.Write(content)
	mw.Close()
	return mw.FormDataContentType()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(data)
}
