package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/edupilot/core"
)

func TestDSN(t *testing.T) {
	conf := &core.Config{}
	conf.Database.Engine = "postgres"
	conf.Database.Host = "db"
	conf.Database.Port = "5432"
	conf.Database.User = "edupilot"
	conf.Database.Password = "p@ss"
	conf.Database.AdminUser = "postgres"
	conf.Database.AdminPassword = "root"

	tests := []struct {
		name       string
		dbName     string
		admin      bool
		disableTLS bool
		want       string
	}{
		{
			name:   "app user",
			dbName: "edupilot",
			want:   "postgres://edupilot:p%40ss@db:5432/edupilot?sslmode=require&timezone=utc",
		},
		{
			name:       "admin without tls",
			dbName:     "postgres",
			admin:      true,
			disableTLS: true,
			want:       "postgres://postgres:root@db:5432/postgres?sslmode=disable&timezone=utc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf.Database.DisableTLS = tt.disableTLS
			assert.Equal(t, tt.want, dsn(tt.dbName, tt.admin, conf))
		})
	}
}
