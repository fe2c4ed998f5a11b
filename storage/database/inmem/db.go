// Package inmemdb keeps the roster and plan store in memory. Used in dev and tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
)

type (
	DB struct {
		plans   *planTable
		configs *configTable
		players *playerTable
	}

	planTable struct {
		sync.RWMutex
		table map[string]plan.StoredPlan
	}

	configTable struct {
		sync.RWMutex
		table map[string]plan.CourseConfig
	}

	playerTable struct {
		sync.RWMutex
		table     map[string]student.Student
		passwords map[string][]byte // bcrypt hashes of teachers
	}
)

func Open() *DB {
	return &DB{
		plans:   &planTable{table: make(map[string]plan.StoredPlan)},
		configs: &configTable{table: make(map[string]plan.CourseConfig)},
		players: &playerTable{
			table:     make(map[string]student.Student),
			passwords: make(map[string][]byte),
		},
	}
}
