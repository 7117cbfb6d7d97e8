package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/schedule"
	"github.com/lingora/backend/core/staffing"
	"github.com/lingora/backend/core/user"
)

type (
	// DB is an in-memory database for tests. Repositories ignore the
	// DBExecutor arguments and synchronize on their own table locks.
	DB struct {
		core.DBExecutor // never executes SQL

		user       *userTable
		schedule   *scheduleTables
		curriculum *curriculumTables
		staffing   *staffingTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	scheduleTables struct {
		sync.RWMutex
		availability map[string][]schedule.AvailabilityRange // keyed by owner ID
		events       map[string]*schedule.Event
		assignments  map[string]*schedule.Assignment
	}

	curriculumTables struct {
		sync.RWMutex
		weeks         map[string]*curriculum.ProgramWeek
		topics        map[string]*curriculum.WeekTopic
		topicProgress map[string]*curriculum.TopicProgress
		weekProgress  map[string]*curriculum.WeekProgress
		points        map[string]int
	}

	staffingTable struct {
		sync.RWMutex
		table map[string]*staffing.HourEntry
	}
)

var _ core.DB = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		schedule: &scheduleTables{
			availability: make(map[string][]schedule.AvailabilityRange),
			events:       make(map[string]*schedule.Event),
			assignments:  make(map[string]*schedule.Assignment),
		},
		curriculum: &curriculumTables{
			weeks:         make(map[string]*curriculum.ProgramWeek),
			topics:        make(map[string]*curriculum.WeekTopic),
			topicProgress: make(map[string]*curriculum.TopicProgress),
			weekProgress:  make(map[string]*curriculum.WeekProgress),
			points:        make(map[string]int),
		},
		staffing: &staffingTable{table: make(map[string]*staffing.HourEntry)},
	}
	return db, nil
}

// BeginTx hands back a no-op transactor; repositories apply writes directly.
func (db *DB) BeginTx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return noopTx{}, nil
}

type noopTx struct {
	core.DBExecutor
}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func newPK() string { return uuid.New().String() }
