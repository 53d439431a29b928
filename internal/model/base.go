package model

import "time"

type BaseModel struct {
	ID        string    `db:"id" json:"id" msgpack:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" msgpack:"updated_at"`
}
