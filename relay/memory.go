package relay

import (
	"sort"
	"sync"

	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// MemoryLedger is a process-local Ledger, used when Redis is disabled.
// The replay guard then only holds for the lifetime of the process.
type MemoryLedger struct {
	mu      sync.RWMutex
	relayed map[string]bool
	records map[string]*types.RelayRecord
	blocks  map[int64]uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		relayed: make(map[string]bool),
		records: make(map[string]*types.RelayRecord),
		blocks:  make(map[int64]uint64),
	}
}

func (m *MemoryLedger) IsRelayed(eventKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.relayed[eventKey], nil
}

func (m *MemoryLedger) MarkRelayed(rec *types.RelayRecord) error {
	if err := m.SaveRecord(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relayed[rec.EventKey] = true
	return nil
}

func (m *MemoryLedger) SaveRecord(rec *types.RelayRecord) error {
	if rec == nil {
		return errors.New("null object to store")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	stored := *rec
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = &stored
	return nil
}

func (m *MemoryLedger) FindRecordsByStatus(status string) ([]*types.RelayRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*types.RelayRecord, 0)
	for _, rec := range m.records {
		if rec.Status == status {
			cp := *rec
			records = append(records, &cp)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].TsRelayed < records[j].TsRelayed })
	return records, nil
}

func (m *MemoryLedger) SetScannedBlock(chainID int64, height uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[chainID] = height
	return nil
}

func (m *MemoryLedger) GetScannedBlock(chainID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.blocks[chainID]
	if !ok {
		return -1, nil
	}
	return int64(h), nil
}
