package validators

import "go.mongodb.org/mongo-driver/bson"

var DailyCapacityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"doctor_id", "day", "capacity", "booked_count", "revision"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "objectId"},
			"doctor_id":    bson.M{"bsonType": integer, "minimum": 1},
			"day":          bson.M{"bsonType": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"capacity":     bson.M{"bsonType": integer, "minimum": 0},
			"booked_count": bson.M{"bsonType": integer, "minimum": 0},
			"revision":     bson.M{"bsonType": integer},
			"created_at":   bson.M{"bsonType": "date"},
		},
	},
}

// DoctorSectionValidator covers the per-doctor documents written to enter a
// doctor's exclusive section.
var DoctorSectionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"revision"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":       bson.M{"bsonType": integer},
			"revision":  bson.M{"bsonType": integer},
			"locked_at": bson.M{"bsonType": "date"},
		},
	},
}
