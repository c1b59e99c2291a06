// Package inmemdb is an in-memory implementation of the storage interfaces,
// used by tests and local development.
package inmemdb

import (
	"sync"

	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/school"
)

type DB struct {
	mutex sync.RWMutex

	profiles map[string]*profile.Profile

	schools         map[string]*school.School
	courses         map[string]*school.Course
	folders         map[string]*school.Folder
	pendingTeachers map[string]*school.PendingTeacher
	approvals       map[string]*school.ApprovalHistory
	schoolRequests  map[string]*school.SchoolRequest

	internships map[string]*internship.Internship
	documents   map[string]*internship.Document
	signatures  map[string][]internship.Signature // by document id
	reports     map[string]*internship.Report
}

func NewDB() *DB {
	return &DB{
		profiles:        make(map[string]*profile.Profile),
		schools:         make(map[string]*school.School),
		courses:         make(map[string]*school.Course),
		folders:         make(map[string]*school.Folder),
		pendingTeachers: make(map[string]*school.PendingTeacher),
		approvals:       make(map[string]*school.ApprovalHistory),
		schoolRequests:  make(map[string]*school.SchoolRequest),
		internships:     make(map[string]*internship.Internship),
		documents:       make(map[string]*internship.Document),
		signatures:      make(map[string][]internship.Signature),
		reports:         make(map[string]*internship.Report),
	}
}
