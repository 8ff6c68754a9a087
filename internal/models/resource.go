package models

// EmergencyContact описывает контакт экстренной помощи.
type EmergencyContact struct {
	Name        string `json:"name" yaml:"name"`
	Phone       string `json:"phone" yaml:"phone"`
	Description string `json:"description" yaml:"description"`
}

// OtherResource описывает дополнительный ресурс поддержки.
type OtherResource struct {
	Title       string `json:"title" yaml:"title"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// Resources справочник контактов и ресурсов поддержки.
type Resources struct {
	EmergencyContacts []EmergencyContact `yaml:"emergency_contacts"`
	OtherResources    []OtherResource    `yaml:"other_resources"`
}
