package assistant

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/clinicadelvalle/clinica-platform/internal/settings"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

// Action names, as exposed to the completion provider.
const (
	ActionCreatePatient         = "create_patient"
	ActionScheduleAppointment   = "schedule_appointment"
	ActionRescheduleAppointment = "reschedule_appointment"
	ActionCancelAppointment     = "cancel_appointment"
	ActionUpdatePatient         = "update_patient"
	ActionDeactivatePatient     = "deactivate_patient"
	ActionListPatients          = "list_patients"
	ActionGetPatientDetails     = "get_patient_details"
	ActionCreateSessionEntry    = "create_session_entry"
	ActionListSessionEntries    = "list_session_entries"
	ActionSuggestDiagnosis      = "suggest_diagnosis"
	ActionSuggestTechniques     = "suggest_techniques"
)

// actionSpec is one catalog entry: the description can be overridden per
// clinic through the settings table, the parameter schema cannot.
type actionSpec struct {
	name        string
	description string
	parameters  jsonschema.Definition
}

// Catalog is the fixed set of actions the assistant can perform.
type Catalog struct {
	specs    []actionSpec
	settings settings.Store
	logger   *logging.Logger
}

// NewCatalog builds the action catalog, reading per-action description
// overrides from the settings store.
func NewCatalog(store settings.Store, logger *logging.Logger) *Catalog {
	if store == nil {
		panic("assistant: settings store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{specs: buildSpecs(), settings: store, logger: logger}
}

// Has reports whether the catalog defines the named action.
func (c *Catalog) Has(name string) bool {
	for _, s := range c.specs {
		if s.name == name {
			return true
		}
	}
	return false
}

// Tools renders the catalog as completion-provider tool definitions.
// Description overrides come from `tool.<name>.description` rows; a read
// failure falls back to the built-in text.
func (c *Catalog) Tools(ctx context.Context) []openai.Tool {
	tools := make([]openai.Tool, 0, len(c.specs))
	for _, s := range c.specs {
		desc := s.description
		if v, err := c.settings.Get(ctx, "tool."+s.name+".description"); err == nil && v != "" {
			desc = v
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.name,
				Description: desc,
				Parameters:  s.parameters,
			},
		})
	}
	return tools
}

func stringProp(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: desc}
}

func objectSchema(required []string, props map[string]jsonschema.Definition) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Object, Properties: props, Required: required}
}

func buildSpecs() []actionSpec {
	nombre := stringProp("Nombre completo del paciente")
	pacienteID := jsonschema.Definition{Type: jsonschema.Integer, Description: "Identificador numérico del paciente, si se conoce"}
	return []actionSpec{
		{
			name:        ActionCreatePatient,
			description: "Registra un paciente nuevo. Si ya existe uno con el mismo nombre lo reactiva y lo devuelve.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"nombre":          nombre,
				"alias":           stringProp("Apodo o alias del paciente"),
				"telefono":        stringProp("Teléfono de contacto"),
				"genero":          {Type: jsonschema.String, Description: "Género del paciente", Enum: []string{"masculino", "femenino", "otro", "no_especificado"}},
				"motivo_consulta": stringProp("Motivo de la consulta"),
			}),
		},
		{
			name:        ActionScheduleAppointment,
			description: "Agenda una cita para un paciente en una fecha y hora dadas.",
			parameters: objectSchema([]string{"nombre", "fecha"}, map[string]jsonschema.Definition{
				"id":     pacienteID,
				"nombre": nombre,
				"fecha":  stringProp("Fecha y hora de la cita, formato AAAA-MM-DD HH:MM"),
				"motivo": stringProp("Motivo de la cita"),
			}),
		},
		{
			name:        ActionRescheduleAppointment,
			description: "Cambia una cita existente a una nueva fecha. Si el paciente tiene varias citas, fecha identifica cuál mover.",
			parameters: objectSchema([]string{"nombre", "nueva_fecha"}, map[string]jsonschema.Definition{
				"id":          pacienteID,
				"nombre":      nombre,
				"fecha":       stringProp("Fecha de la cita a mover, si hay más de una"),
				"nueva_fecha": stringProp("Nueva fecha y hora, formato AAAA-MM-DD HH:MM"),
			}),
		},
		{
			name:        ActionCancelAppointment,
			description: "Cancela una cita. Si el paciente tiene varias citas, fecha identifica cuál cancelar.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":     pacienteID,
				"nombre": nombre,
				"fecha":  stringProp("Fecha de la cita a cancelar, si hay más de una"),
			}),
		},
		{
			name:        ActionUpdatePatient,
			description: "Actualiza los datos de un paciente existente.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":              pacienteID,
				"nombre":          nombre,
				"nuevo_nombre":    stringProp("Nuevo nombre completo"),
				"alias":           stringProp("Nuevo alias"),
				"telefono":        stringProp("Nuevo teléfono"),
				"genero":          {Type: jsonschema.String, Description: "Género", Enum: []string{"masculino", "femenino", "otro", "no_especificado"}},
				"motivo_consulta": stringProp("Nuevo motivo de consulta"),
				"estado_proceso":  {Type: jsonschema.String, Description: "Estado del proceso terapéutico", Enum: []string{"iniciado", "en_pausa", "finalizado"}},
			}),
		},
		{
			name:        ActionDeactivatePatient,
			description: "Da de baja (lógica) a un paciente.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":     pacienteID,
				"nombre": nombre,
			}),
		},
		{
			name:        ActionListPatients,
			description: "Lista los pacientes registrados, con filtro opcional.",
			parameters: objectSchema(nil, map[string]jsonschema.Definition{
				"estado":   {Type: jsonschema.String, Description: "Filtrar por estado", Enum: []string{"activo", "inactivo"}},
				"busqueda": stringProp("Texto a buscar en el nombre"),
			}),
		},
		{
			name:        ActionGetPatientDetails,
			description: "Devuelve la ficha de un paciente con sus notas de sesión.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":     pacienteID,
				"nombre": nombre,
			}),
		},
		{
			name:        ActionCreateSessionEntry,
			description: "Registra una nota de sesión clínica para un paciente.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":                        pacienteID,
				"nombre":                    nombre,
				"fecha":                     stringProp("Fecha de la sesión, formato AAAA-MM-DD HH:MM"),
				"sintomas":                  stringProp("Síntomas observados"),
				"padecimientos":             stringProp("Padecimientos"),
				"notas_importantes":         stringProp("Notas importantes"),
				"trastornos":                stringProp("Trastornos"),
				"afectamientos_subyacentes": stringProp("Afectamientos subyacentes"),
				"diagnostico":               stringProp("Diagnóstico"),
			}),
		},
		{
			name:        ActionListSessionEntries,
			description: "Lista las notas de sesión de un paciente.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":     pacienteID,
				"nombre": nombre,
				"estado": {Type: jsonschema.String, Description: "Estado de las notas", Enum: []string{"activo", "inactivo", "todos"}},
				"limite": {Type: jsonschema.Integer, Description: "Máximo de notas a devolver"},
			}),
		},
		{
			name:        ActionSuggestDiagnosis,
			description: "Sugiere hipótesis diagnósticas a partir del historial del paciente. Solo orientativo.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":     pacienteID,
				"nombre": nombre,
			}),
		},
		{
			name:        ActionSuggestTechniques,
			description: "Sugiere técnicas terapéuticas a partir del historial del paciente. Solo orientativo.",
			parameters: objectSchema([]string{"nombre"}, map[string]jsonschema.Definition{
				"id":     pacienteID,
				"nombre": nombre,
			}),
		},
	}
}
