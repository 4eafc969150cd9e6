package locale

var messages = map[string]map[string]string{
	English: {
		"welcome":                "Hi {name}! I am your AI assistant: chat, translation, writing, images, video and voice.",
		"help":                   "Commands:\n/chat <text> - talk to the AI\n/translate <lang> <text> - translate\n/write <topic> - write a text\n/image <prompt> - create an image\n/video <prompt> - create a video\n/voice <text> - voice over\n/music <prompt> - compose music\n/stats - your limits\n/premium - plans\n/buy [plan] - purchase a plan\n/lang <ru|uz|en> - language\n/cancel - cancel the current step",
		"help_admin":             "Admin:\n/pending\n/confirm <id>\n/reject <id>\n/newpromo <code> <percent> [max uses] [days]\n/promos\n/grant <user> <days>\n/revoke <user>\n/adminstats",
		"lang_usage":             "Choose a language: /lang ru, /lang uz or /lang en",
		"lang_set":               "Language switched to English.",
		"stats_header":           "Plan: {package}",
		"stats_premium_until":    "Premium until {expiry}",
		"stats_line":             "{service}: {used}/{limit}, {left} left today",
		"stats_line_unlimited":   "{service}: unlimited",
		"premium_active":         "Premium is active: {package} until {expiry}.",
		"premium_active_forever": "Premium is active: {package}.",
		"premium_inactive":       "You are on the {package} plan.",
		"packages_header":        "Available plans:",
		"package_line":           "{name} ({key}): {price} so'm for {days} days",
		"buy_prompt":             "Send the plan name, for example: standard",
		"buy_hint":               "Buy with /buy <plan>, for example /buy standard",
		"unknown_package":        "There is no plan called \"{key}\".",
		"free_package_selected":  "The {package} plan is now active.",
		"premium_blocks_free":    "Your paid plan is still active, so the free plan cannot be selected. See /premium.",
		"promo_prompt":           "{package}: {price} so'm. Send a promo code or /skip.",
		"promo_applied":          "Promo code {code} applied: -{percent}%, {price} -> {amount} so'm.",
		"promo_invalid":          "Promo code {code} is not valid. Price stays {price} so'm.",
		"promo_skipped":          "No promo code. Price: {price} so'm.",
		"payment_instructions":   "Payment {id}\nPlan: {package}\nAmount: {amount} so'm\nTransfer to card {target} ({holder}), then send /paid.",
		"no_checkout":            "Start a purchase with /buy first.",
		"paid_no_payment":        "There is no payment waiting for you. Use /buy to start one.",
		"paid_reported":          "Thanks! Payment {id} was sent to the administrator for checking.",
		"payment_confirmed_user": "Payment confirmed. {package} is active until {expiry}.",
		"payment_rejected_user":  "Payment {id} was rejected. Contact support if this is a mistake.",
		"cancelled":              "Cancelled.",
		"nothing_to_cancel":      "Nothing to cancel.",
		"quota_exceeded":         "Daily limit reached for {service}: {used}/{limit}. Upgrade with /premium.",
		"wizard_prompt":          "{service}: send your request.",
		"translate_usage":        "Usage: /translate <language> <text>, for example /translate en Salom",
		"usage_left":             "{service}: {left} left today.",
		"unknown_command":        "Unknown command. Send /help.",
		"error":                  "Something went wrong. Please try again later.",
		"admin_unauthorized":     "You do not have permission for this command.",
		"payment_not_found":      "Payment {id} was not found or is already processed.",
		"admin_confirmed":        "Payment {id} confirmed for user {user}.",
		"admin_rejected":         "Payment {id} of user {user} rejected.",
		"pending_empty":          "No pending payments.",
		"pending_reminder":       "Reminder: {count} payment(s) wait for confirmation. Send /pending.",
		"pending_header":         "Pending payments: {count}",
		"pending_line":           "{id} | user {user} | {package} | {amount} so'm | promo {promo}",
		"promo_usage":            "Usage: /newpromo <code> <percent> [max uses] [days]",
		"promo_invalid_discount": "Discount must be between 1 and 100 percent.",
		"promo_created":          "Promo code {code} created: -{percent}%.",
		"promo_exists":           "Promo code {code} already exists.",
		"promos_empty":           "No promo codes yet.",
		"promo_list_line":        "{code}: -{percent}%, used {uses}/{max}, {status}",
		"grant_usage":            "Usage: /grant <user> <days>",
		"granted":                "User {user} got premium for {days} days.",
		"revoke_usage":           "Usage: /revoke <user>",
		"revoked":                "Premium revoked for user {user}.",
		"user_not_found":         "User {user} not found.",
		"admin_stats":            "Users: {total}\nActive in 24h: {active}\nPremium: {premium}\nPending payments: {pending}\nConfirmed revenue: {revenue} so'm",
		"admin_stats_service":    "{service}: {count}",
		"admin_payment_report":   "Payment reported\nID: {id}\nUser: {user} ({name})\nPlan: {package}\nAmount: {amount} so'm\nPromo: {promo}\nConfirm: /confirm {id}",
		"ai_placeholder":         "[{service}] Your request \"{prompt}\" was received. AI results will appear here once the provider is connected.",
		"status_active":          "active",
		"status_inactive":        "inactive",
		"unlimited":              "unlimited",
		"none":                   "none",

		"service_chat":             "AI chat",
		"service_translation":      "Translation",
		"service_text_generation":  "Text writing",
		"service_video_creation":   "Video creation",
		"service_image_generation": "Image generation",
		"service_voice_music":      "Voice and music",
	},
	Russian: {
		"welcome":                "Привет, {name}! Я ваш ИИ-помощник: чат, перевод, тексты, изображения, видео и голос.",
		"help":                   "Команды:\n/chat <текст> - чат с ИИ\n/translate <язык> <текст> - перевод\n/write <тема> - написать текст\n/image <описание> - создать изображение\n/video <описание> - создать видео\n/voice <текст> - озвучка\n/music <описание> - музыка\n/stats - ваши лимиты\n/premium - тарифы\n/buy [тариф] - купить тариф\n/lang <ru|uz|en> - язык\n/cancel - отменить текущий шаг",
		"help_admin":             "Админ:\n/pending\n/confirm <id>\n/reject <id>\n/newpromo <код> <процент> [макс] [дней]\n/promos\n/grant <пользователь> <дней>\n/revoke <пользователь>\n/adminstats",
		"lang_usage":             "Выберите язык: /lang ru, /lang uz или /lang en",
		"lang_set":               "Язык переключен на русский.",
		"stats_header":           "Тариф: {package}",
		"stats_premium_until":    "Премиум до {expiry}",
		"stats_line":             "{service}: {used}/{limit}, осталось сегодня {left}",
		"stats_line_unlimited":   "{service}: без ограничений",
		"premium_active":         "Премиум активен: {package} до {expiry}.",
		"premium_active_forever": "Премиум активен: {package}.",
		"premium_inactive":       "Ваш тариф: {package}.",
		"packages_header":        "Доступные тарифы:",
		"package_line":           "{name} ({key}): {price} сум за {days} дней",
		"buy_prompt":             "Отправьте название тарифа, например: standard",
		"buy_hint":               "Купить: /buy <тариф>, например /buy standard",
		"unknown_package":        "Тарифа \"{key}\" не существует.",
		"free_package_selected":  "Тариф {package} активирован.",
		"premium_blocks_free":    "Ваш платный тариф ещё действует, бесплатный выбрать нельзя. Подробнее: /premium.",
		"promo_prompt":           "{package}: {price} сум. Отправьте промокод или /skip.",
		"promo_applied":          "Промокод {code} применен: -{percent}%, {price} -> {amount} сум.",
		"promo_invalid":          "Промокод {code} недействителен. Цена остается {price} сум.",
		"promo_skipped":          "Без промокода. Цена: {price} сум.",
		"payment_instructions":   "Платеж {id}\nТариф: {package}\nСумма: {amount} сум\nПереведите на карту {target} ({holder}) и отправьте /paid.",
		"no_checkout":            "Сначала начните покупку командой /buy.",
		"paid_no_payment":        "Нет ожидающего платежа. Начните покупку командой /buy.",
		"paid_reported":          "Спасибо! Платеж {id} отправлен администратору на проверку.",
		"payment_confirmed_user": "Оплата подтверждена. {package} активен до {expiry}.",
		"payment_rejected_user":  "Платеж {id} отклонен. Если это ошибка, напишите в поддержку.",
		"cancelled":              "Отменено.",
		"nothing_to_cancel":      "Нечего отменять.",
		"quota_exceeded":         "Дневной лимит для «{service}» исчерпан: {used}/{limit}. Повысить тариф: /premium.",
		"wizard_prompt":          "{service}: отправьте ваш запрос.",
		"translate_usage":        "Использование: /translate <язык> <текст>, например /translate en Привет",
		"usage_left":             "{service}: осталось сегодня {left}.",
		"unknown_command":        "Неизвестная команда. Отправьте /help.",
		"error":                  "Что-то пошло не так. Попробуйте позже.",
		"admin_unauthorized":     "У вас нет прав для этой команды.",
		"payment_not_found":      "Платеж {id} не найден или уже обработан.",
		"admin_confirmed":        "Платеж {id} подтвержден для пользователя {user}.",
		"admin_rejected":         "Платеж {id} пользователя {user} отклонен.",
		"pending_empty":          "Нет ожидающих платежей.",
		"pending_reminder":       "Напоминание: платежей ждут подтверждения: {count}. Отправьте /pending.",
		"pending_header":         "Ожидающие платежи: {count}",
		"pending_line":           "{id} | пользователь {user} | {package} | {amount} сум | промокод {promo}",
		"promo_usage":            "Использование: /newpromo <код> <процент> [макс] [дней]",
		"promo_invalid_discount": "Скидка должна быть от 1 до 100 процентов.",
		"promo_created":          "Промокод {code} создан: -{percent}%.",
		"promo_exists":           "Промокод {code} уже существует.",
		"promos_empty":           "Промокодов пока нет.",
		"promo_list_line":        "{code}: -{percent}%, использован {uses}/{max}, {status}",
		"grant_usage":            "Использование: /grant <пользователь> <дней>",
		"granted":                "Пользователь {user} получил премиум на {days} дней.",
		"revoke_usage":           "Использование: /revoke <пользователь>",
		"revoked":                "Премиум пользователя {user} отключен.",
		"user_not_found":         "Пользователь {user} не найден.",
		"admin_stats":            "Пользователей: {total}\nАктивных за 24ч: {active}\nПремиум: {premium}\nОжидающих платежей: {pending}\nПодтвержденная выручка: {revenue} сум",
		"admin_stats_service":    "{service}: {count}",
		"admin_payment_report":   "Сообщение об оплате\nID: {id}\nПользователь: {user} ({name})\nТариф: {package}\nСумма: {amount} сум\nПромокод: {promo}\nПодтвердить: /confirm {id}",
		"ai_placeholder":         "[{service}] Ваш запрос «{prompt}» принят. Результат ИИ появится здесь после подключения провайдера.",
		"status_active":          "активен",
		"status_inactive":        "неактивен",
		"unlimited":              "без ограничений",
		"none":                   "нет",

		"service_chat":             "ИИ-чат",
		"service_translation":      "Перевод",
		"service_text_generation":  "Генерация текста",
		"service_video_creation":   "Создание видео",
		"service_image_generation": "Генерация изображений",
		"service_voice_music":      "Голос и музыка",
	},
	Uzbek: {
		"welcome":                "Salom, {name}! Men sizning AI yordamchingizman: suhbat, tarjima, matn, rasm, video va ovoz.",
		"help":                   "Buyruqlar:\n/chat <matn> - AI bilan suhbat\n/translate <til> <matn> - tarjima\n/write <mavzu> - matn yozish\n/image <tavsif> - rasm yaratish\n/video <tavsif> - video yaratish\n/voice <matn> - ovozlashtirish\n/music <tavsif> - musiqa\n/stats - limitlaringiz\n/premium - tariflar\n/buy [tarif] - tarif sotib olish\n/lang <ru|uz|en> - til\n/cancel - joriy qadamni bekor qilish",
		"help_admin":             "Admin:\n/pending\n/confirm <id>\n/reject <id>\n/newpromo <kod> <foiz> [maks] [kun]\n/promos\n/grant <foydalanuvchi> <kun>\n/revoke <foydalanuvchi>\n/adminstats",
		"lang_usage":             "Tilni tanlang: /lang ru, /lang uz yoki /lang en",
		"lang_set":               "Til o'zbek tiliga o'zgartirildi.",
		"stats_header":           "Tarif: {package}",
		"stats_premium_until":    "Premium {expiry} gacha",
		"stats_line":             "{service}: {used}/{limit}, bugun {left} ta qoldi",
		"stats_line_unlimited":   "{service}: cheksiz",
		"premium_active":         "Premium faol: {package}, {expiry} gacha.",
		"premium_active_forever": "Premium faol: {package}.",
		"premium_inactive":       "Sizning tarifingiz: {package}.",
		"packages_header":        "Mavjud tariflar:",
		"package_line":           "{name} ({key}): {days} kun uchun {price} so'm",
		"buy_prompt":             "Tarif nomini yuboring, masalan: standard",
		"buy_hint":               "Sotib olish: /buy <tarif>, masalan /buy standard",
		"unknown_package":        "\"{key}\" nomli tarif mavjud emas.",
		"free_package_selected":  "{package} tarifi faollashtirildi.",
		"premium_blocks_free":    "Pullik tarifingiz hali amal qilmoqda, bepul tarifni tanlab bo'lmaydi. Batafsil: /premium.",
		"promo_prompt":           "{package}: {price} so'm. Promokod yuboring yoki /skip.",
		"promo_applied":          "{code} promokodi qo'llandi: -{percent}%, {price} -> {amount} so'm.",
		"promo_invalid":          "{code} promokodi yaroqsiz. Narx {price} so'm bo'lib qoladi.",
		"promo_skipped":          "Promokodsiz. Narx: {price} so'm.",
		"payment_instructions":   "To'lov {id}\nTarif: {package}\nSumma: {amount} so'm\n{target} kartasiga ({holder}) o'tkazing va /paid yuboring.",
		"no_checkout":            "Avval /buy orqali xaridni boshlang.",
		"paid_no_payment":        "Kutilayotgan to'lov yo'q. /buy orqali boshlang.",
		"paid_reported":          "Rahmat! {id} to'lovi administratorga tekshirish uchun yuborildi.",
		"payment_confirmed_user": "To'lov tasdiqlandi. {package} {expiry} gacha faol.",
		"payment_rejected_user":  "{id} to'lovi rad etildi. Xato bo'lsa, qo'llab-quvvatlash xizmatiga yozing.",
		"cancelled":              "Bekor qilindi.",
		"nothing_to_cancel":      "Bekor qilinadigan narsa yo'q.",
		"quota_exceeded":         "\"{service}\" uchun kunlik limit tugadi: {used}/{limit}. Tarifni oshirish: /premium.",
		"wizard_prompt":          "{service}: so'rovingizni yuboring.",
		"translate_usage":        "Foydalanish: /translate <til> <matn>, masalan /translate ru Salom",
		"usage_left":             "{service}: bugun {left} ta qoldi.",
		"unknown_command":        "Noma'lum buyruq. /help yuboring.",
		"error":                  "Xatolik yuz berdi. Keyinroq urinib ko'ring.",
		"admin_unauthorized":     "Bu buyruq uchun ruxsatingiz yo'q.",
		"payment_not_found":      "{id} to'lovi topilmadi yoki allaqachon ko'rib chiqilgan.",
		"admin_confirmed":        "{id} to'lovi {user} foydalanuvchi uchun tasdiqlandi.",
		"admin_rejected":         "{user} foydalanuvchining {id} to'lovi rad etildi.",
		"pending_empty":          "Kutilayotgan to'lovlar yo'q.",
		"pending_reminder":       "Eslatma: {count} ta to'lov tasdiqlanishini kutmoqda. /pending yuboring.",
		"pending_header":         "Kutilayotgan to'lovlar: {count}",
		"pending_line":           "{id} | foydalanuvchi {user} | {package} | {amount} so'm | promokod {promo}",
		"promo_usage":            "Foydalanish: /newpromo <kod> <foiz> [maks] [kun]",
		"promo_invalid_discount": "Chegirma 1 dan 100 foizgacha bo'lishi kerak.",
		"promo_created":          "{code} promokodi yaratildi: -{percent}%.",
		"promo_exists":           "{code} promokodi allaqachon mavjud.",
		"promos_empty":           "Hozircha promokodlar yo'q.",
		"promo_list_line":        "{code}: -{percent}%, ishlatilgan {uses}/{max}, {status}",
		"grant_usage":            "Foydalanish: /grant <foydalanuvchi> <kun>",
		"granted":                "{user} foydalanuvchiga {days} kunlik premium berildi.",
		"revoke_usage":           "Foydalanish: /revoke <foydalanuvchi>",
		"revoked":                "{user} foydalanuvchining premiumi o'chirildi.",
		"user_not_found":         "{user} foydalanuvchi topilmadi.",
		"admin_stats":            "Foydalanuvchilar: {total}\n24 soatda faol: {active}\nPremium: {premium}\nKutilayotgan to'lovlar: {pending}\nTasdiqlangan tushum: {revenue} so'm",
		"admin_stats_service":    "{service}: {count}",
		"admin_payment_report":   "To'lov haqida xabar\nID: {id}\nFoydalanuvchi: {user} ({name})\nTarif: {package}\nSumma: {amount} so'm\nPromokod: {promo}\nTasdiqlash: /confirm {id}",
		"ai_placeholder":         "[{service}] \"{prompt}\" so'rovingiz qabul qilindi. AI natijasi provayder ulangandan so'ng shu yerda chiqadi.",
		"status_active":          "faol",
		"status_inactive":        "nofaol",
		"unlimited":              "cheksiz",
		"none":                   "yo'q",

		"service_chat":             "AI suhbat",
		"service_translation":      "Tarjima",
		"service_text_generation":  "Matn yaratish",
		"service_video_creation":   "Video yaratish",
		"service_image_generation": "Rasm yaratish",
		"service_voice_music":      "Ovoz va musiqa",
	},
}
