package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/archivemind/insight-api/internal/config"
	"github.com/archivemind/insight-api/internal/store"
	"github.com/archivemind/insight-api/internal/store/model"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

const (
	insertJobStm = "INSERT INTO jobs (id, kind, state, started_at) VALUES ('%s', '%s', '%s', '%s');"
)

var _ = Describe("job store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db

		Expect(s.InitialMigration()).To(Succeed())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM jobs;")
	})

	Context("create", func() {
		It("successfully creates a job", func() {
			job, err := s.Job().Create(context.TODO(), model.Job{
				ID:        uuid.New(),
				Kind:      "search",
				State:     model.JobStateRunning,
				Params:    []byte(`{"query":"retrieval"}`),
				StartedAt: time.Now(),
			})
			Expect(err).To(BeNil())
			Expect(job.State).To(Equal(model.JobStateRunning))

			var count int64
			Expect(gormdb.Model(&model.Job{}).Count(&count).Error).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})

		It("fails on duplicate id", func() {
			id := uuid.New()
			_, err := s.Job().Create(context.TODO(), model.Job{ID: id, Kind: "search", State: model.JobStateRunning})
			Expect(err).To(BeNil())

			_, err = s.Job().Create(context.TODO(), model.Job{ID: id, Kind: "search", State: model.JobStateRunning})
			Expect(err).To(MatchError(store.ErrDuplicateKey))
		})
	})

	Context("get", func() {
		It("successfully gets a job by id", func() {
			id := uuid.New()
			tx := gormdb.Exec(fmt.Sprintf(insertJobStm, id, "enrichment", model.JobStateRunning, time.Now().Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.Kind).To(Equal("enrichment"))
		})

		It("returns ErrRecordNotFound for a missing job", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("successfully lists all the jobs", func() {
			tx := gormdb.Exec(fmt.Sprintf(insertJobStm, uuid.NewString(), "search", model.JobStateRunning, time.Now().Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())
			tx = gormdb.Exec(fmt.Sprintf(insertJobStm, uuid.NewString(), "enrichment", model.JobStateCompleted, time.Now().Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())

			jobs, err := s.Job().List(context.TODO(), store.NewJobQueryFilter(), store.NewJobQueryOptions())
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
		})

		It("filters by kind and state", func() {
			tx := gormdb.Exec(fmt.Sprintf(insertJobStm, uuid.NewString(), "search", model.JobStateRunning, time.Now().Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())
			tx = gormdb.Exec(fmt.Sprintf(insertJobStm, uuid.NewString(), "search", model.JobStateCompleted, time.Now().Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())
			tx = gormdb.Exec(fmt.Sprintf(insertJobStm, uuid.NewString(), "enrichment", model.JobStateRunning, time.Now().Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())

			jobs, err := s.Job().List(context.TODO(), store.NewJobQueryFilter().ByKind("search"), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))

			jobs, err = s.Job().List(context.TODO(), store.NewJobQueryFilter().ByKind("search").ByState(model.JobStateRunning), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
		})

		It("orders newest first and applies the limit", func() {
			old := time.Now().Add(-time.Hour)
			recent := time.Now()

			oldID := uuid.New()
			recentID := uuid.New()
			tx := gormdb.Exec(fmt.Sprintf(insertJobStm, oldID, "search", model.JobStateCompleted, old.Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())
			tx = gormdb.Exec(fmt.Sprintf(insertJobStm, recentID, "search", model.JobStateCompleted, recent.Format(time.RFC3339)))
			Expect(tx.Error).To(BeNil())

			jobs, err := s.Job().List(context.TODO(), nil, store.NewJobQueryOptions().WithNewestFirst().WithLimit(1))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(recentID))
		})
	})

	Context("update", func() {
		It("persists the terminal fields", func() {
			id := uuid.New()
			_, err := s.Job().Create(context.TODO(), model.Job{ID: id, Kind: "search", State: model.JobStateRunning, StartedAt: time.Now()})
			Expect(err).To(BeNil())

			finished := time.Now()
			updated, err := s.Job().Update(context.TODO(), model.Job{
				ID:         id,
				State:      model.JobStateCompleted,
				Phase:      "searching",
				Stats:      []byte(`{"found":5}`),
				Cost:       []byte(`{"usd":0.03}`),
				Result:     []byte(`{"ok":true}`),
				FinishedAt: &finished,
			})
			Expect(err).To(BeNil())
			Expect(updated.State).To(Equal(model.JobStateCompleted))

			job, err := s.Job().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(job.State).To(Equal(model.JobStateCompleted))
			Expect(job.Phase).To(Equal("searching"))
			Expect(job.Result).To(MatchJSON(`{"ok":true}`))
			Expect(job.FinishedAt).ToNot(BeNil())
		})

		It("returns ErrRecordNotFound for a missing job", func() {
			_, err := s.Job().Update(context.TODO(), model.Job{ID: uuid.New(), State: model.JobStateFailed})
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("delete", func() {
		It("deletes a job and tolerates a second call", func() {
			id := uuid.New()
			_, err := s.Job().Create(context.TODO(), model.Job{ID: id, Kind: "search", State: model.JobStateCancelled})
			Expect(err).To(BeNil())

			Expect(s.Job().Delete(context.TODO(), id)).To(Succeed())
			_, err = s.Job().Get(context.TODO(), id)
			Expect(err).To(MatchError(store.ErrRecordNotFound))

			Expect(s.Job().Delete(context.TODO(), id)).To(Succeed())
		})
	})

	Context("transaction", func() {
		It("rolls back an uncommitted insert", func() {
			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, err = s.Job().Create(ctx, model.Job{ID: uuid.New(), Kind: "search", State: model.JobStateRunning})
			Expect(err).To(BeNil())

			_, err = store.Rollback(ctx)
			Expect(err).To(BeNil())

			jobs, err := s.Job().List(context.TODO(), nil, nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(BeEmpty())
		})

		It("commits an insert", func() {
			ctx, err := s.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, err = s.Job().Create(ctx, model.Job{ID: uuid.New(), Kind: "search", State: model.JobStateRunning})
			Expect(err).To(BeNil())

			_, err = store.Commit(ctx)
			Expect(err).To(BeNil())

			jobs, err := s.Job().List(context.TODO(), nil, nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
		})
	})
})
