package store

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/archivemind/insight-api/internal/config"
)

var _ = Describe("pgsql dsn", func() {
	It("renders every configured field", func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "pgsql"
		cfg.Database.Hostname = "db.internal"
		cfg.Database.User = "insight"
		cfg.Database.Password = "s3cret"
		cfg.Database.Port = "5433"
		cfg.Database.Name = "insight"

		Expect(pgsqlDSN(cfg)).To(Equal("host=db.internal user=insight password=s3cret port=5433 dbname=insight"))
	})

	It("omits dbname when unset", func() {
		cfg := config.NewDefault()
		cfg.Database.Type = "pgsql"
		cfg.Database.Hostname = "localhost"
		cfg.Database.User = "admin"
		cfg.Database.Password = "adminpass"
		cfg.Database.Port = "5432"
		cfg.Database.Name = ""

		Expect(pgsqlDSN(cfg)).To(Equal("host=localhost user=admin password=adminpass port=5432"))
	})
})
