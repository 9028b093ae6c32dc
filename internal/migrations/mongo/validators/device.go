package validators

import "go.mongodb.org/mongo-driver/bson"

var DeviceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"device_id",
			"lab",
			"ip_address",
			"port",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"device_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"lab": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"ip_address": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 253,
			},

			"port": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  65535,
			},
		},
	},
}
