// Copyright (c) 2020 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package base

import (
	"fmt"
	"sync"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
)

// LogEventType : Predefined object types
type LogEventType string

const (
	// UnknownType : Invalid event typ
	UnknownType LogEventType = ""
	// LogObjectEventType : Used for logging object state when a change happens
	LogObjectEventType LogEventType = "log"
)

// LogObjectType :
type LogObjectType string

const (
	// UnknownLogType : Invalid log type
	UnknownLogType LogObjectType = ""
	// ZpoolLogType : an imported pool being queried
	ZpoolLogType LogObjectType = "zpool"
	// DatasetLogType : a dataset whose properties are looked up
	DatasetLogType LogObjectType = "zfs_dataset"
	// ZVolLogType : a zvol device node
	ZVolLogType LogObjectType = "zvol"
	// QueryLogType : one CLI invocation
	QueryLogType LogObjectType = "zfs_query"
)

// LogObject : Holds all key value pairs to be logged later.
type LogObject struct {
	Initialized bool
	Fields      map[string]interface{}
	logger      *logrus.Logger
}

// logObjectMap tracks objects for NewLogObject
var logObjectMap sync.Map

// logSourceObjectMap tracks objects for NewSourceLogObject
var logSourceObjectMap sync.Map

// Make sure we have a separate object for each log context, even when
// two contexts log about an object with the same key.
func (object *LogObject) mapKey(key string) string {
	return fmt.Sprintf("%s:%p", key, object)
}

// NewLogObject :
// objType -> [MANDATORY] zpool, dataset, zvol etc
// objName -> pool name, dataset name etc
// objUUID -> UUID of the object if present or Zero/uninitialized UUID if not present
// key     -> [MANDATORY] Key used for storing internal data.
func NewLogObject(logBase *LogObject, objType LogObjectType, objName string, objUUID uuid.UUID, key string) *LogObject {
	if logBase == nil {
		logrus.Fatalf("No logBase for %s/%s/%s/%s", string(objType),
			objName, objUUID.String(), key)
	}
	if objType == UnknownLogType || len(key) == 0 {
		logrus.Fatal("NewLogObject: objType and key parameters mandatory")
	}
	if value, ok := logObjectMap.Load(logBase.mapKey(key)); ok {
		return asLogObject("NewLogObject", value)
	}

	fields := make(map[string]interface{})
	fields["log_event_type"] = LogObjectEventType
	fields["obj_type"] = objType
	if len(objName) != 0 {
		fields["obj_name"] = objName
	}
	fields["obj_key"] = key
	if !uuid.Equal(objUUID, uuid.UUID{}) {
		fields["obj_uuid"] = objUUID.String()
	}
	object := &LogObject{
		Fields: fields,
		logger: logBase.logger,
	}
	object.Merge(logBase)
	object.Initialized = true
	value, _ := logObjectMap.LoadOrStore(logBase.mapKey(key), object)
	return asLogObject("NewLogObject", value)
}

func asLogObject(caller string, value interface{}) *LogObject {
	object, ok := value.(*LogObject)
	if !ok {
		logrus.Fatalf("%s: Object found in key map is not of type *LogObject, found: %T",
			caller, value)
	}
	return object
}

// DeleteLogObject : Delete log object from internal map
// logBase must be the same object as for calls to NewLogObject
func DeleteLogObject(logBase *LogObject, key string) {
	if logBase == nil {
		logrus.Fatalf("No logBase for %s", key)
	}
	mapKey := logBase.mapKey(key)
	if _, ok := logObjectMap.Load(mapKey); !ok {
		logBase.Errorf("DeleteLogObject: LogObject with mapKey %s not found in internal map", mapKey)
		return
	}
	logObjectMap.Delete(mapKey)
}

// NewSourceLogObject : create an object with agentName and agentPid
// Since there might be multiple calls to this for the same agent and
// logger we check for an existing one. A different logger gets its own
// object, so each Init keeps its own output and level.
func NewSourceLogObject(logger *logrus.Logger, agentName string, agentPid int) *LogObject {
	key := fmt.Sprintf("%s:%p", agentName, logger)
	if value, ok := logSourceObjectMap.Load(key); ok {
		return asLogObject("NewSourceLogObject", value)
	}
	object := &LogObject{
		Initialized: true,
		logger:      logger,
		Fields: map[string]interface{}{
			"source": agentName,
			"pid":    agentPid,
		},
	}
	value, _ := logSourceObjectMap.LoadOrStore(key, object)
	return asLogObject("NewSourceLogObject", value)
}

// AddField : Add a key value pair to be logged
func (object *LogObject) AddField(key string, value interface{}) *LogObject {
	object.Fields[key] = value
	return object
}

// Merge :
// Values of existing fields in destination object will be overwritten with values
// from source object.
func (object *LogObject) Merge(source *LogObject) *LogObject {
	for key, value := range source.Fields {
		object.Fields[key] = value
	}
	return object
}

// Clone : Create a clone from an existing Log object
func (object *LogObject) Clone() *LogObject {
	newLogObject := &LogObject{
		Fields:      make(map[string]interface{}, len(object.Fields)),
		logger:      object.logger,
		Initialized: true,
	}
	for key, value := range object.Fields {
		newLogObject.Fields[key] = value
	}
	return newLogObject
}

// CloneAndAddField : Add key value pair to a cloned log object
func (object *LogObject) CloneAndAddField(key string, value interface{}) *LogObject {
	return object.Clone().AddField(key, value)
}
