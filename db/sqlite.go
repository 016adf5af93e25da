package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gradecast/schema"
)

var database *sql.DB

// InitDB initializes the SQLite database used for the prediction audit log.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id TEXT PRIMARY KEY,
        input TEXT NOT NULL,
        label TEXT NOT NULL,
        confidence REAL NOT NULL,
        latency_ms REAL DEFAULT 0,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        accuracy REAL,
        train_rows INTEGER,
        test_rows INTEGER,
        column_count INTEGER,
        trained_at DATETIME
    );
    `
	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// PredictionRecord is one audited prediction.
type PredictionRecord struct {
	ID         string        `json:"id"`
	Input      schema.Record `json:"input"`
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	LatencyMs  float64       `json:"latency_ms"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SavePrediction appends one prediction to the audit log.
func SavePrediction(rec PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	input, err := json.Marshal(rec.Input)
	if err != nil {
		return err
	}
	_, err = database.Exec(`
        INSERT OR REPLACE INTO predictions (id, input, label, confidence, latency_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, string(input), rec.Label, rec.Confidence, rec.LatencyMs, rec.CreatedAt)
	return err
}

// QueryRecentPredictions returns the newest audit rows, newest first.
func QueryRecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := database.Query(`
        SELECT id, input, label, confidence, latency_ms, created_at
        FROM predictions
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0, limit)
	for rows.Next() {
		var rec PredictionRecord
		var input string
		if err := rows.Scan(&rec.ID, &input, &rec.Label, &rec.Confidence, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(input), &rec.Input); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TrainingLog is one recorded training run.
type TrainingLog struct {
	ModelName   string    `json:"model_name"`
	Accuracy    float64   `json:"accuracy"`
	TrainRows   int       `json:"train_rows"`
	TestRows    int       `json:"test_rows"`
	ColumnCount int       `json:"column_count"`
	TrainedAt   time.Time `json:"trained_at"`
}

// SaveTrainingLog records one training run.
func SaveTrainingLog(log TrainingLog) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	_, err := database.Exec(`
        INSERT INTO training_log (model_name, accuracy, train_rows, test_rows, column_count, trained_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		log.ModelName, log.Accuracy, log.TrainRows, log.TestRows, log.ColumnCount, log.TrainedAt)
	return err
}

// LoadTrainingLog returns all recorded training runs, newest first.
func LoadTrainingLog() ([]TrainingLog, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT model_name, accuracy, train_rows, test_rows, column_count, trained_at
        FROM training_log
        ORDER BY trained_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.Accuracy, &log.TrainRows, &log.TestRows, &log.ColumnCount, &log.TrainedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
