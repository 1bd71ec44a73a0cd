package redis

import (
	"encoding/json"
	"fmt"
	"time"

	"gobridgerelay/log"
	"gobridgerelay/types"

	"github.com/cockroachdb/errors"
	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
)

const relayedSet = "relayed:events"

var StatusSets = map[string]string{
	types.RecordStatusRelayed: "relayops:relayed", // mirrored transaction accepted by the node
	types.RecordStatusFailed:  "relayops:failed",  // mirrored transaction could not be built or sent
}

// Store keeps relay history and the replay guard set in Redis
type Store struct {
	pool *redis.Pool
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func NewStore(host string, port int) *Store {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	return NewStoreWithPool(&redis.Pool{
		MaxIdle: 5,
		Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
	})
}

func NewStoreWithPool(pool *redis.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping checks the connection, without persistence the relay must not run
func (s *Store) Ping() error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err
}

func scannedBlockKey(chainID int64) string {
	return fmt.Sprintf("chainBlockScanned:%d", chainID)
}

func recordKey(status, id string) string {
	return fmt.Sprintf("relayop:%s:%s", status, id)
}

// GetScannedBlock returns -1 when the chain was never scanned
func (s *Store) GetScannedBlock(chainID int64) (int64, error) {
	conn := s.pool.Get()
	defer conn.Close()

	blockHeight, err := redis.Int64(conn.Do("GET", scannedBlockKey(chainID)))
	if err == nil {
		return blockHeight, nil
	}

	if errors.Is(err, redis.ErrNil) {
		return -1, nil
	}

	log.GetLogger().Error("error Redis get", "error", err)
	return -1, err
}

func (s *Store) SetScannedBlock(chainID int64, blockHeight uint64) error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("SET", scannedBlockKey(chainID), blockHeight)
	if err != nil {
		log.GetLogger().Error("error Redis set", "error", err)
		return err
	}

	return nil
}

func (s *Store) IsRelayed(eventKey string) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	found, err := redis.Bool(conn.Do("SISMEMBER", relayedSet, eventKey))
	if err != nil {
		log.GetLogger().Error("error Redis SISMEMBER", "error", err)
		return false, err
	}
	return found, nil
}

// MarkRelayed stores the record and adds its event to the replay guard set
func (s *Store) MarkRelayed(rec *types.RelayRecord) error {
	if err := s.SaveRecord(rec); err != nil {
		return err
	}

	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("SADD", relayedSet, rec.EventKey)
	if err != nil {
		log.GetLogger().Error("error Redis SADD", "error", err)
		return err
	}
	return nil
}

// SaveRecord writes the record and indexes it in its status set.
// A record belongs to exactly one status set.
func (s *Store) SaveRecord(rec *types.RelayRecord) error {
	if rec == nil {
		return errors.New("null object to store")
	}

	set, ok := StatusSets[rec.Status]
	if !ok {
		return errors.Newf("relay record has unknown status %q", rec.Status)
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	key := recordKey(rec.Status, rec.ID)

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "cannot marshal relay record to JSON")
	}

	conn := s.pool.Get()
	defer conn.Close()

	_, err = conn.Do("SET", key, recJSON)
	if err != nil {
		log.GetLogger().Error("error Redis SET", "error", err)
		return err
	}

	// also add the key to the corresponding SET
	_, err = conn.Do("SADD", set, key)
	if err != nil {
		log.GetLogger().Error("error Redis SADD", "error", err)
		return err
	}

	return nil
}

// FindRecordsByStatus scans the whole status set, O(n) in the number of records
func (s *Store) FindRecordsByStatus(status string) ([]*types.RelayRecord, error) {
	set, ok := StatusSets[status]
	if !ok {
		return nil, errors.Newf("redis key not found for status %q", status)
	}

	conn := s.pool.Get()
	defer conn.Close()

	records := make([]*types.RelayRecord, 0)

	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", set, cursor))
		if err != nil {
			return nil, err
		}

		var keys []string
		_, err = redis.Scan(values, &cursor, &keys)
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				// index points to a deleted record
				continue
			}
			if err != nil {
				log.GetLogger().Error("error Redis GET", "error", err)
				return nil, err
			}

			var rec types.RelayRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, errors.Wrapf(err, "cannot unmarshal relay record %s", key)
			}
			if rec.Status == status {
				records = append(records, &rec)
			}
		}

		if cursor == 0 {
			break
		}
	}

	return records, nil
}
