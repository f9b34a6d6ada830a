package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = bson.A{"int", "long"}

var SlotHoldValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"doctor_id",
			"slot_start",
			"slot_end",
			"status",
			"expires_at",
			"created_at",
			"revision",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"doctor_id": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},

			"slot_start": bson.M{
				"bsonType": "date",
			},

			"slot_end": bson.M{
				"bsonType": "date",
			},

			"booking_id": bson.M{
				"bsonType": bson.A{"null", "int", "long"},
			},

			"status": bson.M{
				"enum": bson.A{"HELD", "CONFIRMED", "RELEASED"},
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"revision": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},
		},
	},
}
