package models

import "time"

type WaterLog struct {
	ID        string    `json:"id"`
	AmountMl  int       `json:"amountMl"`
	Timestamp time.Time `json:"timestamp"`
}
