// Package catalog declares the built-in feature modules. Definitions live in
// code so that the action graph is reviewable in one place; runtime state
// (toggles, sub-states) lives in the database.
package catalog

import "schoolorbit/backend/internal/feature"

// Definitions returns the full built-in catalog in presentation order.
// The slice is freshly allocated on each call so callers can pass it to a
// registry without aliasing concerns.
func Definitions() []feature.Definition {
	return []feature.Definition{
		grades(),
		attendance(),
		classes(),
		piiAccess(),
		userManagement(),
		featureAdmin(),
	}
}

func grades() feature.Definition {
	return feature.Definition{
		ID:          "grades",
		Label:       "ระบบคะแนน",
		Description: "จัดการการกรอกคะแนนและสรุปรายงานผลการเรียน",
		Icon:        "i-lucide-graduation-cap",
		States: []feature.StateDef{
			{
				Code:        "entry-open",
				Label:       "เปิดระบบกรอกคะแนน",
				Description: "เมื่อเปิด ครูสามารถกรอกและแก้ไขคะแนนได้",
				Default:     false,
			},
		},
		Actions: []feature.Action{
			{
				Code:        "grade:read",
				Label:       "ดูข้อมูลคะแนน",
				Description: "เข้าถึงหน้าแดชบอร์ดคะแนนและรายงานต่าง ๆ",
				Conditions:  []feature.Condition{{Type: feature.ConditionFeatureEnabled}},
			},
			{
				Code:        "grade:write",
				Label:       "กรอกคะแนน",
				Description: "บันทึกและแก้ไขคะแนนนักเรียน",
				Conditions: []feature.Condition{
					{Type: feature.ConditionFeatureEnabled},
					{Type: feature.ConditionFeatureState, State: "entry-open", Expected: true},
				},
			},
			{
				Code:        "grade:toggle-entry",
				Label:       "เปิด/ปิดระบบกรอกคะแนน",
				Description: "ควบคุมการเปิดให้ครูกรอกคะแนน",
			},
			{
				Code:        "grade:manage",
				Label:       "ตั้งค่าระบบคะแนน",
				Description: "บันทึกค่ากำหนดหลักสูตรและน้ำหนักคะแนน",
				Implies:     []string{"grade:read", "grade:toggle-entry", "grade:write"},
			},
		},
		Menu: []feature.MenuItem{
			{
				ID:               "grades-dashboard",
				Label:            "คะแนน",
				Href:             "/grades",
				Icon:             "i-lucide-clipboard-list",
				Order:            15,
				Requires:         []string{"grade:read"},
				RequiresFeatures: []string{"grades"},
			},
		},
	}
}

func attendance() feature.Definition {
	return feature.Definition{
		ID:          "attendance",
		Label:       "ระบบเช็คชื่อ",
		Description: "จัดการระบบเช็คชื่อรายวันและรายงานสถานะนักเรียน",
		Icon:        "i-lucide-calendar-check-2",
		States: []feature.StateDef{
			{
				Code:        "open",
				Label:       "เปิดระบบเช็คชื่อ",
				Description: "เมื่อเปิด ครูสามารถเช็คชื่อนักเรียนได้",
				Default:     false,
			},
		},
		Actions: []feature.Action{
			{
				Code:        "attend:read",
				Label:       "ดูรายงานเช็คชื่อ",
				Description: "เข้าถึงแดชบอร์ดและรายงานการเช็คชื่อ",
				Conditions:  []feature.Condition{{Type: feature.ConditionFeatureEnabled}},
			},
			{
				Code:        "attend:write",
				Label:       "เช็คชื่อนักเรียน",
				Description: "บันทึกการเข้าห้องเรียนของนักเรียน",
				Conditions: []feature.Condition{
					{Type: feature.ConditionFeatureEnabled},
					{Type: feature.ConditionFeatureState, State: "open", Expected: true},
				},
			},
			{
				Code:        "attend:toggle",
				Label:       "เปิด/ปิดระบบเช็คชื่อ",
				Description: "จัดการสถานะการเปิดระบบเช็คชื่อ",
			},
		},
		Menu: []feature.MenuItem{
			{
				ID:       "attendance-dashboard",
				Label:    "เช็คชื่อ",
				Href:     "/attendance",
				Icon:     "i-lucide-calendar-check-2",
				Order:    20,
				Requires: []string{"attend:read"},
			},
			{
				ID:               "attendance-mark",
				Label:            "บันทึกการเช็คชื่อ",
				Href:             "/attendance/mark",
				Icon:             "i-lucide-user-check",
				Order:            21,
				Requires:         []string{"attend:write"},
				RequiresFeatures: []string{"attendance"},
			},
		},
	}
}

func classes() feature.Definition {
	return feature.Definition{
		ID:          "classes",
		Label:       "ข้อมูลชั้นเรียน",
		Description: "เข้าถึงรายชื่อและรายละเอียดชั้นเรียนที่เปิดสอน",
		Icon:        "i-lucide-book-open",
		Actions: []feature.Action{
			{
				Code:        "class:read",
				Label:       "ดูข้อมูลชั้นเรียน",
				Description: "เข้าถึงหน้ารายการชั้นเรียนและข้อมูลที่เกี่ยวข้อง",
			},
		},
	}
}

func piiAccess() feature.Definition {
	return feature.Definition{
		ID:          "pii-access",
		Label:       "ข้อมูลอ่อนไหว (PII)",
		Description: "กำหนดสิทธิ์การดูข้อมูลส่วนบุคคลที่เข้ารหัส",
		Icon:        "i-lucide-shield",
		Actions: []feature.Action{
			{
				Code:        "pii:view",
				Label:       "ดูข้อมูล PII",
				Description: "อนุญาตให้ถอดรหัสและแสดงข้อมูลส่วนบุคคลของผู้ใช้",
			},
		},
	}
}

func userManagement() feature.Definition {
	return feature.Definition{
		ID:          "user-management",
		Label:       "จัดการผู้ใช้",
		Description: "ควบคุมสิทธิ์การจัดการบัญชีผู้ใช้และบทบาท",
		Icon:        "i-lucide-users",
		Actions: []feature.Action{
			{
				Code:        "user:manage",
				Label:       "จัดการผู้ใช้",
				Description: "สร้าง แก้ไข ระงับ และกำหนดบทบาทผู้ใช้",
				Conditions:  []feature.Condition{{Type: feature.ConditionFeatureEnabled}},
			},
		},
	}
}

func featureAdmin() feature.Definition {
	return feature.Definition{
		ID:          "feature-admin",
		Label:       "จัดการคุณลักษณะระบบ",
		Description: "กำหนดการเปิดปิดฟีเจอร์และสถานะย่อยของระบบ",
		Icon:        "i-lucide-toggle-left",
		Actions: []feature.Action{
			{
				Code:        "feature:manage",
				Label:       "ปรับตั้งค่าฟีเจอร์",
				Description: "เข้าถึงหน้าจัดการฟีเจอร์และแก้ไขสถานะต่าง ๆ",
			},
		},
	}
}
