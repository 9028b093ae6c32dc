package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"email",
			"role",
			"password_hash",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"student_id": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 32,
			},

			"email": bson.M{
				"bsonType":  "string",
				"maxLength": 254,
				"pattern":   "^[^@\\s]+@[^@\\s]+$",
			},

			"first_name": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"last_name": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"role": bson.M{
				"bsonType": "string",
				"enum": []string{
					"STUDENT",
					"TEACHER",
					"ADMIN",
				},
			},

			"password_hash": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
