package idea

// MessageSchema matches the envelope returned by create and edit
const MessageSchema = `{
  "type": "object",
  "properties": {
    "msg": {"type": "string"},
    "id": {"type": ["string", "null"]}
  },
  "required": ["msg"]
}`

// ListSchema matches the body of the list endpoint
const ListSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "id": {"type": "string"},
      "title": {"type": "string"},
      "description": {"type": ["string", "null"]},
      "url": {"type": ["string", "null"]}
    },
    "required": ["id"]
  }
}`

// TextSchema matches the bare message returned by delete and by edits or
// deletes of unknown ideas, which the service encodes as a JSON string
const TextSchema = `{"type": "string", "minLength": 1}`
