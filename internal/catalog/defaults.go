package catalog

// DefaultPackages is the catalog seeded at startup.
func DefaultPackages() []Package {
	return []Package{
		{
			Key: "basic",
			Names: map[string]string{
				"en": "Basic",
				"ru": "Базовый",
				"uz": "Boshlang'ich",
			},
			Price:        0,
			DurationDays: 0,
			Free:         true,
			Default:      true,
			Quotas: map[string]int{
				ServiceChat:            5,
				ServiceTranslation:     20,
				ServiceTextGeneration:  5,
				ServiceVideoCreation:   2,
				ServiceImageGeneration: 5,
				ServiceVoiceMusic:      5,
			},
		},
		{
			Key: "standard",
			Names: map[string]string{
				"en": "Standard",
				"ru": "Стандарт",
				"uz": "Standart",
			},
			Price:        50000,
			DurationDays: 30,
			Quotas: map[string]int{
				ServiceChat:            Unlimited,
				ServiceTranslation:     Unlimited,
				ServiceTextGeneration:  50,
				ServiceVideoCreation:   10,
				ServiceImageGeneration: 30,
				ServiceVoiceMusic:      30,
			},
		},
		{
			Key: "pro",
			Names: map[string]string{
				"en": "Pro",
				"ru": "Про",
				"uz": "Pro",
			},
			Price:        450000,
			DurationDays: 30,
			Quotas: map[string]int{
				ServiceChat:            Unlimited,
				ServiceTranslation:     Unlimited,
				ServiceTextGeneration:  Unlimited,
				ServiceVideoCreation:   50,
				ServiceImageGeneration: 200,
				ServiceVoiceMusic:      Unlimited,
			},
		},
	}
}
